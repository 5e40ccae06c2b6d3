package score

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the parallel shortlist lookups of one ScoreAll call
// when the engine is created with a non-positive limit.
const DefaultConcurrency = 16

// Engine computes hotel scores from the active rules and the shortlist, and
// applies rule mutations. It keeps no state of its own besides the store
// handles, so a single Engine serves concurrent requests.
type Engine struct {
	// rules — rule store, queried once per score request.
	rules RuleStore
	// shortlist — membership store, queried once per scored item.
	shortlist ShortlistStore
	// seed — records written by EnsureDefaults into empty stores.
	seed *Seed
	// concurrency — maximum number of in-flight membership lookups per batch.
	concurrency int
}

// EnsureDefaults writes the seed rules and shortlist when the rule store is
// empty. It returns true when the seed was written. Concurrent initializers
// may both observe an empty store; duplicate defaults are tolerated.
//
// A failure here is not fatal for the process: with no rules in the store
// every score degrades to 0.
func (e *Engine) EnsureDefaults(ctx context.Context) (bool, error) {
	empty, err := e.rules.IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	slog.Info("Initialising default rules", "rules", len(e.seed.Rules), "shortlist", len(e.seed.Shortlist))
	if err := e.rules.InsertRules(ctx, e.seed.Rules); err != nil {
		return false, err
	}
	if err := e.shortlist.InsertEntries(ctx, e.seed.Shortlist); err != nil {
		return false, err
	}
	return true, nil
}

// ActiveRules lists the rules currently contributing to scores.
func (e *Engine) ActiveRules(ctx context.Context) ([]Rule, error) {
	return e.rules.ActiveRules(ctx)
}

// ScoreFor computes the score of a single hotel.
// Without active rules the shortlist is not consulted and the score is 0.
func (e *Engine) ScoreFor(ctx context.Context, hotelID, countryID int64) (Result, error) {
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(rules) == 0 {
		return Result{HotelID: hotelID}, nil
	}

	m, err := e.shortlist.Membership(ctx, hotelID, countryID)
	if err != nil {
		return Result{}, err
	}
	return Result{HotelID: hotelID, Score: weightsOf(rules).apply(m)}, nil
}

// ScoreAll computes scores for a batch of queries. Active rules are read once
// for the whole batch; membership lookups run concurrently and the results
// follow the order of queries. The first lookup failure aborts the batch.
func (e *Engine) ScoreAll(ctx context.Context, queries []Query) ([]Result, error) {
	results := make([]Result, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		for i, q := range queries {
			results[i] = Result{HotelID: q.HotelID}
		}
		return results, nil
	}

	w := weightsOf(rules)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			m, err := e.shortlist.Membership(gctx, q.HotelID, q.CountryID)
			if err != nil {
				return err
			}
			results[i] = Result{HotelID: q.HotelID, Score: w.apply(m)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Configure switches the rule of kind item on or off and/or sets its value.
//
// Errors:
//   - ErrUnknownItem if item is not a known kind;
//   - ErrMissingParameters if opts sets neither Turn nor Value;
//   - ErrInvalidValue if Value is negative, NaN or infinite;
//   - the store error if any update fails.
//
// The two updates are independent store calls: when one fails the other may
// still have been applied. The returned flag reports whether any update
// matched a rule; false means the store holds no rule of that kind.
func (e *Engine) Configure(ctx context.Context, item string, opts ConfigureOptions) (bool, error) {
	kind, err := ParseItemKind(item)
	if err != nil {
		return false, err
	}
	if opts.Turn == nil && opts.Value == nil {
		return false, ErrMissingParameters
	}
	if opts.Value != nil && !validValue(*opts.Value) {
		return false, fmt.Errorf("%w: %v", ErrInvalidValue, *opts.Value)
	}

	var turned, valued bool
	var g errgroup.Group
	if opts.Turn != nil {
		g.Go(func() error {
			slog.Info("Turn rule", "item", kind, "active", *opts.Turn)
			var err error
			turned, err = e.rules.SetActive(ctx, kind, *opts.Turn)
			return err
		})
	}
	if opts.Value != nil {
		g.Go(func() error {
			slog.Info("Set rule value", "item", kind, "value", *opts.Value)
			var err error
			valued, err = e.rules.SetValue(ctx, kind, *opts.Value)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	modified := turned || valued
	if !modified {
		slog.Warn("No rule matched, nothing updated", "item", kind)
	}
	return modified, nil
}

// Shortlisted lists the IDs shortlisted under the kind named by item.
func (e *Engine) Shortlisted(ctx context.Context, item string) ([]int64, error) {
	kind, err := ParseItemKind(item)
	if err != nil {
		return nil, err
	}
	return e.shortlist.Shortlisted(ctx, kind)
}

// weights holds the value of the first active rule of each kind.
type weights struct {
	hotel   float64
	country float64
}

// weightsOf picks the first active rule of each kind; later duplicates are ignored.
func weightsOf(rules []Rule) weights {
	var w weights
	var hotelSeen, countrySeen bool
	for _, r := range rules {
		if !r.Active {
			continue
		}
		switch r.Kind {
		case Hotel:
			if !hotelSeen {
				w.hotel, hotelSeen = r.Value, true
			}
		case Country:
			if !countrySeen {
				w.country, countrySeen = r.Value, true
			}
		}
	}
	return w
}

// apply returns the best matching value. Matches never add up.
func (w weights) apply(m Membership) float64 {
	var score float64
	if m.ByID {
		score = w.hotel
	}
	if m.ByCountry {
		score = max(score, w.country)
	}
	return score
}

// NewEngine creates an engine over the given stores.
//
// Parameters:
//   - rules, shortlist: store handles; their lifecycle belongs to the caller.
//   - seed: records for EnsureDefaults; nil selects DefaultSeed.
//   - concurrency: parallel membership lookups per batch; values < 1 select DefaultConcurrency.
func NewEngine(rules RuleStore, shortlist ShortlistStore, seed *Seed, concurrency int) *Engine {
	if seed == nil {
		seed = DefaultSeed()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		rules:       rules,
		shortlist:   shortlist,
		seed:        seed,
		concurrency: concurrency,
	}
}
