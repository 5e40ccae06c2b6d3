package store

import (
	"context"
	"database/sql"
	"fmt"
	"hotelscore/internal/score"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
)

// Schema creates the rules and shortlist tables. Rule kinds are unique, so a
// second bootstrap can never produce a duplicate rule.
const Schema = `
CREATE TABLE IF NOT EXISTS rules (
	id        SERIAL PRIMARY KEY,
	item_kind TEXT NOT NULL UNIQUE,
	value     DOUBLE PRECISION NOT NULL,
	active    BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS shortlist (
	type TEXT   NOT NULL,
	id   BIGINT NOT NULL,
	PRIMARY KEY (type, id)
);`

const (
	queryActiveRules = `SELECT item_kind, value, active FROM rules WHERE active ORDER BY id`
	queryRulesEmpty  = `SELECT NOT EXISTS (SELECT 1 FROM rules)`
	queryInsertRule  = `INSERT INTO rules (item_kind, value, active) VALUES ($1, $2, $3) ON CONFLICT (item_kind) DO NOTHING`
	querySetActive   = `UPDATE rules SET active = $1 WHERE item_kind = $2`
	querySetValue    = `UPDATE rules SET value = $1 WHERE item_kind = $2`
	queryMembership  = `SELECT
	EXISTS (SELECT 1 FROM shortlist WHERE type = $1 AND id = $2),
	EXISTS (SELECT 1 FROM shortlist WHERE type = $3 AND id = $4)`
	queryInsertEntry = `INSERT INTO shortlist (type, id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	queryShortlisted = `SELECT id FROM shortlist WHERE type = $1 ORDER BY id`
)

// PostgresStore keeps rules and shortlist in PostgreSQL through database/sql.
// While the schema is not known to exist, every operation first tries to
// create it.
type PostgresStore struct {
	db          *sql.DB
	schemaMu    sync.Mutex
	schemaReady atomic.Bool
}

// EnsureSchema creates missing tables.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()

	if p.schemaReady.Load() {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return score.NewStoreUnavailableError("schema", err)
	}
	p.schemaReady.Store(true)
	return nil
}

func (p *PostgresStore) prepare(ctx context.Context) error {
	if p.schemaReady.Load() {
		return nil
	}
	return p.EnsureSchema(ctx)
}

// ActiveRules returns active rules ordered by id, i.e. insertion order.
// Rows with an unknown kind are skipped.
func (p *PostgresStore) ActiveRules(ctx context.Context) ([]score.Rule, error) {
	if err := p.prepare(ctx); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, queryActiveRules)
	if err != nil {
		return nil, score.NewStoreUnavailableError("rules.active", err)
	}
	defer rows.Close()

	rules := make([]score.Rule, 0, 2)
	for rows.Next() {
		var kind string
		var r score.Rule
		if err := rows.Scan(&kind, &r.Value, &r.Active); err != nil {
			return nil, score.NewStoreUnavailableError("rules.active", err)
		}
		if r.Kind, err = score.ParseItemKind(kind); err != nil {
			slog.Warn("Skipping rule row", "item_kind", kind, "error", err)
			continue
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, score.NewStoreUnavailableError("rules.active", err)
	}
	return rules, nil
}

func (p *PostgresStore) IsEmpty(ctx context.Context) (bool, error) {
	if err := p.prepare(ctx); err != nil {
		return false, err
	}
	var empty bool
	if err := p.db.QueryRowContext(ctx, queryRulesEmpty).Scan(&empty); err != nil {
		return false, score.NewStoreUnavailableError("rules.empty", err)
	}
	return empty, nil
}

// InsertRules inserts all rules in one transaction. A rule whose kind already
// exists is left untouched.
func (p *PostgresStore) InsertRules(ctx context.Context, rules []score.Rule) error {
	return p.inTx(ctx, "rules.insert", func(tx *sql.Tx) error {
		for _, r := range rules {
			if _, err := tx.ExecContext(ctx, queryInsertRule, r.Kind.String(), r.Value, r.Active); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *PostgresStore) SetActive(ctx context.Context, kind score.ItemKind, active bool) (bool, error) {
	return p.update(ctx, "rules.set_active", querySetActive, active, kind.String())
}

func (p *PostgresStore) SetValue(ctx context.Context, kind score.ItemKind, value float64) (bool, error) {
	return p.update(ctx, "rules.set_value", querySetValue, value, kind.String())
}

func (p *PostgresStore) update(ctx context.Context, op, query string, args ...any) (bool, error) {
	if err := p.prepare(ctx); err != nil {
		return false, err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, score.NewStoreUnavailableError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, score.NewStoreUnavailableError(op, err)
	}
	return n > 0, nil
}

// Membership answers both existence checks with a single query.
func (p *PostgresStore) Membership(ctx context.Context, hotelID, countryID int64) (score.Membership, error) {
	if err := p.prepare(ctx); err != nil {
		return score.Membership{}, err
	}
	var m score.Membership
	err := p.db.QueryRowContext(ctx, queryMembership,
		score.Hotel.String(), hotelID, score.Country.String(), countryID,
	).Scan(&m.ByID, &m.ByCountry)
	if err != nil {
		return score.Membership{}, score.NewStoreUnavailableError("shortlist.membership", err)
	}
	return m, nil
}

func (p *PostgresStore) InsertEntries(ctx context.Context, entries []score.ShortlistEntry) error {
	return p.inTx(ctx, "shortlist.insert", func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, queryInsertEntry, e.Kind.String(), e.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *PostgresStore) Shortlisted(ctx context.Context, kind score.ItemKind) ([]int64, error) {
	if err := p.prepare(ctx); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, queryShortlisted, kind.String())
	if err != nil {
		return nil, score.NewStoreUnavailableError("shortlist.list", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, score.NewStoreUnavailableError("shortlist.list", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, score.NewStoreUnavailableError("shortlist.list", err)
	}
	return ids, nil
}

func (p *PostgresStore) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	if err := p.prepare(ctx); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return score.NewStoreUnavailableError(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return score.NewStoreUnavailableError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return score.NewStoreUnavailableError(op, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// NewPostgresStore wraps an open database handle whose schema already exists.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	p := &PostgresStore{db: db}
	p.schemaReady.Store(true)
	return p
}

// OpenPostgres opens a pool for dsn, checks connectivity and creates the schema.
// An unreachable server is logged, not returned: the pool dials again on the
// next query and the schema is created then.
func OpenPostgres(ctx context.Context, dsn string, maxConnections int) (*PostgresStore, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(maxConnections)
	db.SetMaxIdleConns(maxConnections)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := &PostgresStore{db: db}
	if err := db.PingContext(ctx); err != nil {
		slog.Warn("PostgreSQL is unreachable, will retry on demand", "error", err)
		return store, nil
	}
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("Unable to create PostgreSQL schema, will retry on demand", "error", err)
	}
	return store, nil
}
