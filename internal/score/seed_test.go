package score

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeed(t *testing.T) {
	seed := DefaultSeed()

	assert.Equal(t, []Rule{
		{Kind: Hotel, Value: 5, Active: true},
		{Kind: Country, Value: 3, Active: true},
	}, seed.Rules)
	assert.Len(t, seed.Shortlist, 7)
	assert.Equal(t, ShortlistEntry{Kind: Hotel, ID: 1001}, seed.Shortlist[0])
	assert.Equal(t, ShortlistEntry{Kind: Country, ID: 16300}, seed.Shortlist[6])
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown rule kind", "rules:\n  - {kind: city, value: 1, active: true}\n"},
		{"negative value", "rules:\n  - {kind: hotel, value: -1, active: true}\n"},
		{"unknown shortlist type", "shortlist:\n  - {type: region, id: 1}\n"},
		{"invalid yaml", "rules: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSeed(t *testing.T) {
	file := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(file, []byte("rules:\n  - {kind: hotel, value: 2.5, active: false}\n"), 0o600))

	seed, err := LoadSeed(file)
	require.NoError(t, err)
	assert.Equal(t, []Rule{{Kind: Hotel, Value: 2.5, Active: false}}, seed.Rules)
	assert.Empty(t, seed.Shortlist)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestItemKind(t *testing.T) {
	for _, k := range ItemKinds {
		parsed, err := ParseItemKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.True(t, k.Valid())
	}

	assert.Equal(t, "scoreHotel", Hotel.ScoreField())
	assert.Equal(t, "scoreCountry", Country.ScoreField())

	_, err := ParseItemKind("city")
	assert.ErrorIs(t, err, ErrUnknownItem)
	_, err = ParseItemKind("Hotel")
	assert.ErrorIs(t, err, ErrUnknownItem)
	_, err = ParseItemKind(ItemKind(9).String())
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.False(t, ItemKind(0).Valid())

	_, err = ItemKind(9).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestWeights(t *testing.T) {
	rules := []Rule{
		{Kind: Hotel, Value: 5, Active: false},
		{Kind: Hotel, Value: 4, Active: true},
		{Kind: Country, Value: 3, Active: true},
		{Kind: Hotel, Value: 9, Active: true},
	}
	w := weightsOf(rules)
	assert.Equal(t, weights{hotel: 4, country: 3}, w, "first active rule of each kind wins")

	assert.Equal(t, 0.0, w.apply(Membership{}))
	assert.Equal(t, 4.0, w.apply(Membership{ByID: true}))
	assert.Equal(t, 3.0, w.apply(Membership{ByCountry: true}))
	assert.Equal(t, 4.0, w.apply(Membership{ByID: true, ByCountry: true}))
}

func TestValidValue(t *testing.T) {
	assert.True(t, validValue(0))
	assert.True(t, validValue(7.5))
	assert.False(t, validValue(-0.1))
	assert.False(t, validValue(math.NaN()))
	assert.False(t, validValue(math.Inf(1)))
}
