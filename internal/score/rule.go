package score

import (
	"fmt"
	"slices"
	"strconv"
)

// ItemKind identifies what a scoring rule and a shortlist entry refer to.
// The set of kinds is closed: a new kind means a new constant here plus a new
// arm in every switch over ItemKind (weights, store field mapping).
type ItemKind uint8

const (
	// Hotel — rule and shortlist entries keyed by hotel ID.
	Hotel ItemKind = iota + 1
	// Country — rule and shortlist entries keyed by country ID.
	Country
)

// ItemKinds lists every known kind in declaration order. Parsing and
// validation go through it.
var ItemKinds = []ItemKind{Hotel, Country}

// ParseItemKind converts the textual form ("hotel", "country") into an ItemKind.
// Any other value fails with ErrUnknownItem.
func ParseItemKind(s string) (ItemKind, error) {
	for _, k := range ItemKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownItem, s)
}

// String returns the textual form of the kind.
func (k ItemKind) String() string {
	switch k {
	case Hotel:
		return "hotel"
	case Country:
		return "country"
	}
	return "ItemKind(" + strconv.Itoa(int(k)) + ")"
}

// ScoreField returns the legacy name of the numeric field that carries the
// rule value for this kind ("scoreHotel", "scoreCountry"). The Mongo backend
// and the rules listing use it as the kind discriminator.
func (k ItemKind) ScoreField() string {
	switch k {
	case Hotel:
		return "scoreHotel"
	case Country:
		return "scoreCountry"
	}
	return ""
}

// Valid reports whether k is one of the declared kinds.
func (k ItemKind) Valid() bool {
	return slices.Contains(ItemKinds, k)
}

// MarshalText implements encoding.TextMarshaler.
func (k ItemKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownItem, k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ItemKind) UnmarshalText(text []byte) error {
	parsed, err := ParseItemKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Rule is the scoring policy for one item kind.
type Rule struct {
	// Kind — which membership the rule scores.
	Kind ItemKind `yaml:"kind"`
	// Value — score granted when the membership matches. Finite and non-negative.
	Value float64 `yaml:"value"`
	// Active — inactive rules never contribute to a score but can still be
	// updated and reactivated.
	Active bool `yaml:"active"`
}

// ShortlistEntry marks a single hotel or country as scorable.
// Hotel and country IDs live in separate spaces and may overlap.
type ShortlistEntry struct {
	Kind ItemKind `yaml:"type"`
	ID   int64    `yaml:"id"`
}

// Membership is the result of a shortlist lookup for one query.
type Membership struct {
	// ByID — the hotel itself is shortlisted.
	ByID bool
	// ByCountry — the hotel's country is shortlisted.
	ByCountry bool
}

// Query is one (hotel, country) pair to score.
type Query struct {
	HotelID   int64 `json:"hotelId"`
	CountryID int64 `json:"countryId"`
}

// Result is the score computed for one query.
type Result struct {
	HotelID int64   `json:"hotelId"`
	Score   float64 `json:"score"`
}

// ConfigureOptions holds the optional parts of a rule mutation.
// At least one field must be set.
type ConfigureOptions struct {
	// Turn switches the rule on (true) or off (false).
	Turn *bool
	// Value replaces the rule value.
	Value *float64
}
