package store

import (
	"context"
	"fmt"
	"hotelscore/internal/score"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout under the configured prefix:
//
//	rules              list of rule kinds in insertion order
//	rule:<kind>        hash {value, active}
//	shortlist:<kind>   set of IDs
const (
	keyRules     = "rules"
	keyRule      = "rule:"
	keyShortlist = "shortlist:"
)

var (
	// insertRuleScript creates the rule hash and records its kind only when the
	// kind has no rule yet. KEYS: rule hash, order list. ARGV: value, active, kind.
	insertRuleScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "value", ARGV[1], "active", ARGV[2])
redis.call("RPUSH", KEYS[2], ARGV[3])
return 1
`)

	// setFieldScript sets one hash field of an existing rule.
	// KEYS: rule hash. ARGV: field, value.
	setFieldScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)
)

// RedisStore keeps rules and shortlist in Redis. One hash per kind makes a
// duplicate rule impossible.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func (s *RedisStore) ruleKey(kind score.ItemKind) string {
	return s.prefix + keyRule + kind.String()
}

func (s *RedisStore) shortlistKey(kind score.ItemKind) string {
	return s.prefix + keyShortlist + kind.String()
}

// ActiveRules reads the order list, then all rule hashes in one pipeline.
func (s *RedisStore) ActiveRules(ctx context.Context) ([]score.Rule, error) {
	kinds, err := s.client.LRange(ctx, s.prefix+keyRules, 0, -1).Result()
	if err != nil {
		return nil, score.NewStoreUnavailableError("rules.active", err)
	}
	if len(kinds) == 0 {
		return []score.Rule{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(kinds))
	for i, k := range kinds {
		cmds[i] = pipe.HGetAll(ctx, s.prefix+keyRule+k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, score.NewStoreUnavailableError("rules.active", err)
	}

	rules := make([]score.Rule, 0, len(kinds))
	for i, k := range kinds {
		kind, err := score.ParseItemKind(k)
		if err != nil {
			continue
		}
		fields := cmds[i].Val()
		if fields["active"] != "1" {
			continue
		}
		value, err := strconv.ParseFloat(fields["value"], 64)
		if err != nil {
			return nil, score.NewStoreUnavailableError("rules.active", fmt.Errorf("rule %s: %w", k, err))
		}
		rules = append(rules, score.Rule{Kind: kind, Value: value, Active: true})
	}
	return rules, nil
}

func (s *RedisStore) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+keyRules).Result()
	if err != nil {
		return false, score.NewStoreUnavailableError("rules.empty", err)
	}
	return n == 0, nil
}

// InsertRules creates missing rules; a kind that already has a rule is skipped.
func (s *RedisStore) InsertRules(ctx context.Context, rules []score.Rule) error {
	for _, r := range rules {
		keys := []string{s.ruleKey(r.Kind), s.prefix + keyRules}
		err := insertRuleScript.Run(ctx, s.client, keys, formatValue(r.Value), formatBool(r.Active), r.Kind.String()).Err()
		if err != nil {
			return score.NewStoreUnavailableError("rules.insert", err)
		}
	}
	return nil
}

func (s *RedisStore) SetActive(ctx context.Context, kind score.ItemKind, active bool) (bool, error) {
	return s.setField(ctx, "rules.set_active", kind, "active", formatBool(active))
}

func (s *RedisStore) SetValue(ctx context.Context, kind score.ItemKind, value float64) (bool, error) {
	return s.setField(ctx, "rules.set_value", kind, "value", formatValue(value))
}

func (s *RedisStore) setField(ctx context.Context, op string, kind score.ItemKind, field, value string) (bool, error) {
	n, err := setFieldScript.Run(ctx, s.client, []string{s.ruleKey(kind)}, field, value).Int()
	if err != nil {
		return false, score.NewStoreUnavailableError(op, err)
	}
	return n == 1, nil
}

// Membership sends both SISMEMBER checks in one pipeline.
func (s *RedisStore) Membership(ctx context.Context, hotelID, countryID int64) (score.Membership, error) {
	pipe := s.client.Pipeline()
	byID := pipe.SIsMember(ctx, s.shortlistKey(score.Hotel), hotelID)
	byCountry := pipe.SIsMember(ctx, s.shortlistKey(score.Country), countryID)
	if _, err := pipe.Exec(ctx); err != nil {
		return score.Membership{}, score.NewStoreUnavailableError("shortlist.membership", err)
	}
	return score.Membership{ByID: byID.Val(), ByCountry: byCountry.Val()}, nil
}

func (s *RedisStore) InsertEntries(ctx context.Context, entries []score.ShortlistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, e := range entries {
		pipe.SAdd(ctx, s.shortlistKey(e.Kind), e.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return score.NewStoreUnavailableError("shortlist.insert", err)
	}
	return nil
}

func (s *RedisStore) Shortlisted(ctx context.Context, kind score.ItemKind) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.shortlistKey(kind)).Result()
	if err != nil {
		return nil, score.NewStoreUnavailableError("shortlist.list", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, score.NewStoreUnavailableError("shortlist.list", fmt.Errorf("member %q: %w", m, err))
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// NewRedisStore uses client with every key placed under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// ConnectRedis creates a client for address and pings it. A failed ping is
// only logged: the client dials again on the next command.
func ConnectRedis(ctx context.Context, address, password string, db int, prefix string, timeout time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis is unreachable, will retry on demand", "address", address, "error", err)
	}
	return NewRedisStore(client, prefix), nil
}
