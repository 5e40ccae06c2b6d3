package score

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the set of records written by Engine.EnsureDefaults on first start.
type Seed struct {
	Rules     []Rule           `yaml:"rules"`
	Shortlist []ShortlistEntry `yaml:"shortlist"`
}

// ParseSeed decodes a YAML seed document and validates every record:
// kinds must be known and rule values finite and non-negative.
func ParseSeed(content []byte) (*Seed, error) {
	seed := Seed{}
	if err := yaml.Unmarshal(content, &seed); err != nil {
		return nil, err
	}

	for i, r := range seed.Rules {
		if !r.Kind.Valid() {
			return nil, fmt.Errorf("rules[%d]: %w", i, ErrUnknownItem)
		}
		if !validValue(r.Value) {
			return nil, fmt.Errorf("rules[%d]: %w: %v", i, ErrInvalidValue, r.Value)
		}
	}
	for i, e := range seed.Shortlist {
		if !e.Kind.Valid() {
			return nil, fmt.Errorf("shortlist[%d]: %w", i, ErrUnknownItem)
		}
	}

	return &seed, nil
}

// LoadSeed reads and parses a seed file.
func LoadSeed(file string) (*Seed, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseSeed(content)
}

// DefaultSeed returns the built-in seed: hotel rule 5, country rule 3, both
// active; hotels 1001-1004 and countries 16100, 16200, 16300 shortlisted.
func DefaultSeed() *Seed {
	seed, err := ParseSeed(defaultSeed)
	if err != nil {
		panic("score: invalid embedded seed: " + err.Error())
	}
	return seed
}

func validValue(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
