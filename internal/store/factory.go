package store

import (
	"context"
	"fmt"
	"hotelscore/internal/configuration"
	"hotelscore/internal/score"
	"log/slog"
)

// Backend bundles the store handles of one configured backend.
type Backend struct {
	// Rules — rule store
	Rules score.RuleStore
	// Shortlist — shortlist store
	Shortlist score.ShortlistStore
	// Close releases the backend connections.
	Close func(ctx context.Context) error
}

// NewBackend connects the backend selected by cfg.Type.
//
// Parameters:
//   - ctx: bounds connection establishment.
//   - cfg: validated store configuration; Mock selects the mock database.
//
// Returns an error only for an unknown type or malformed connection settings.
// An unreachable backend is logged and returned: its operations fail with
// score.ErrStoreUnavailable until it comes back.
func NewBackend(ctx context.Context, cfg configuration.StoreConfig) (*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	switch cfg.Type {
	case configuration.StoreTypeMemory:
		s := NewMemoryStore()
		slog.Info("Using in-memory store")
		return &Backend{Rules: s, Shortlist: s, Close: func(context.Context) error { return nil }}, nil

	case configuration.StoreTypeMongo:
		s, err := ConnectMongo(ctx, cfg.Mongo.URI, cfg.Database(), cfg.Timeout)
		if err != nil {
			return nil, err
		}
		slog.Info("Using MongoDB store", "database", cfg.Database(), "mock", cfg.Mock)
		return &Backend{Rules: s, Shortlist: s, Close: s.Close}, nil

	case configuration.StoreTypePostgres:
		s, err := OpenPostgres(ctx, cfg.PostgresDSN(), cfg.Postgres.MaxConnections)
		if err != nil {
			return nil, err
		}
		slog.Info("Using PostgreSQL store", "mock", cfg.Mock)
		return &Backend{Rules: s, Shortlist: s, Close: func(context.Context) error { return s.Close() }}, nil

	case configuration.StoreTypeRedis:
		s, err := ConnectRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.RedisPrefix(), cfg.Timeout)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Redis store", "address", cfg.Redis.Address, "prefix", cfg.RedisPrefix())
		return &Backend{Rules: s, Shortlist: s, Close: func(context.Context) error { return s.Close() }}, nil
	}

	return nil, fmt.Errorf("unsupported store type '%s'", cfg.Type)
}
