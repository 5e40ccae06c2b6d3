package store

import (
	"context"
	"hotelscore/internal/score"
	"slices"
	"sync"
)

// MemoryStore — потокобезопасное хранилище правил и шортлиста в памяти процесса.
// Правила хранятся в порядке вставки; дубликаты одного вида допускаются,
// обновления затрагивают только первое правило этого вида.
//
// Пример использования:
//
//	s := store.NewMemoryStore()
//	engine := score.NewEngine(s, s, nil, 0)
type MemoryStore struct {
	rules     []score.Rule                      // правила в порядке вставки
	shortlist map[score.ItemKind]map[int64]bool // идентификаторы шортлиста по видам
	mu        sync.RWMutex                      // мьютекс для защиты rules и shortlist
}

// ActiveRules returns a copy of the active rules in insertion order.
func (m *MemoryStore) ActiveRules(_ context.Context) ([]score.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make([]score.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// IsEmpty reports whether no rule has been inserted.
func (m *MemoryStore) IsEmpty(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules) == 0, nil
}

// InsertRules appends rules.
func (m *MemoryStore) InsertRules(_ context.Context, rules []score.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rules...)
	return nil
}

// SetActive updates the first rule of kind.
func (m *MemoryStore) SetActive(_ context.Context, kind score.ItemKind, active bool) (bool, error) {
	return m.update(kind, func(r *score.Rule) { r.Active = active }), nil
}

// SetValue updates the first rule of kind.
func (m *MemoryStore) SetValue(_ context.Context, kind score.ItemKind, value float64) (bool, error) {
	return m.update(kind, func(r *score.Rule) { r.Value = value }), nil
}

func (m *MemoryStore) update(kind score.ItemKind, apply func(*score.Rule)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rules {
		if m.rules[i].Kind == kind {
			apply(&m.rules[i])
			return true
		}
	}
	return false
}

// Membership checks both IDs under a single read lock.
func (m *MemoryStore) Membership(_ context.Context, hotelID, countryID int64) (score.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return score.Membership{
		ByID:      m.shortlist[score.Hotel][hotelID],
		ByCountry: m.shortlist[score.Country][countryID],
	}, nil
}

// InsertEntries adds entries; repeated entries collapse into one.
func (m *MemoryStore) InsertEntries(_ context.Context, entries []score.ShortlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		ids, found := m.shortlist[e.Kind]
		if !found {
			ids = make(map[int64]bool)
			m.shortlist[e.Kind] = ids
		}
		ids[e.ID] = true
	}
	return nil
}

// Shortlisted returns the sorted IDs of kind.
func (m *MemoryStore) Shortlisted(_ context.Context, kind score.ItemKind) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.shortlist[kind]))
	for id := range m.shortlist[kind] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:     make([]score.Rule, 0),
		shortlist: make(map[score.ItemKind]map[int64]bool),
	}
}
