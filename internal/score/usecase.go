package score

import "context"

// RuleStore persists scoring rules. Implementations must be safe for
// concurrent use and must report backend failures as *StoreUnavailableError.
type RuleStore interface {
	// ActiveRules returns all rules with Active set, in insertion order.
	// Returns an empty slice, not an error, when nothing is active.
	ActiveRules(ctx context.Context) ([]Rule, error)
	// IsEmpty reports whether no rule record exists at all.
	IsEmpty(ctx context.Context) (bool, error)
	// InsertRules stores rules as new records.
	InsertRules(ctx context.Context, rules []Rule) error
	// SetActive updates the active flag of the rule of the given kind,
	// whatever its current state. Returns false when no such rule exists.
	SetActive(ctx context.Context, kind ItemKind, active bool) (bool, error)
	// SetValue updates the value of the rule of the given kind.
	// Returns false when no such rule exists. The value is not validated here.
	SetValue(ctx context.Context, kind ItemKind, value float64) (bool, error)
}

// ShortlistStore persists shortlist membership.
type ShortlistStore interface {
	// Membership reports, in a single backend round trip, whether hotelID is
	// shortlisted as a hotel and whether countryID is shortlisted as a country.
	Membership(ctx context.Context, hotelID, countryID int64) (Membership, error)
	// InsertEntries stores entries as new records.
	InsertEntries(ctx context.Context, entries []ShortlistEntry) error
	// Shortlisted returns the IDs shortlisted under kind in ascending order.
	Shortlisted(ctx context.Context, kind ItemKind) ([]int64, error)
}
