package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hotelscore/internal/score"
	"math/big"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// hotelListSchema describes the body of POST /hotels/score.json: an array of
// objects with exactly the integer fields hotelId and countryId. IDs must fit
// int64; any integral number form (1000, 1e3, 1000.0) is accepted.
const hotelListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"hotelId": {"$ref": "#/definitions/id"},
			"countryId": {"$ref": "#/definitions/id"}
		},
		"required": ["hotelId", "countryId"],
		"additionalProperties": false
	},
	"definitions": {
		"id": {
			"type": "integer",
			"minimum": -9223372036854775808,
			"maximum": 9223372036854775807
		}
	}
}`

// hotelListValidator checks batch score payloads against hotelListSchema.
type hotelListValidator struct {
	schema *gojsonschema.Schema
}

// Validate returns an error describing every violation in body.
func (v *hotelListValidator) Validate(body []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return fmt.Errorf("invalid hotel list: %s", strings.Join(violations, "; "))
}

// hotelListItem keeps IDs in their textual form until the schema has accepted them.
type hotelListItem struct {
	HotelID   json.Number `json:"hotelId"`
	CountryID json.Number `json:"countryId"`
}

// Decode validates body and converts it into queries. Every body the schema
// accepts converts without error.
func (v *hotelListValidator) Decode(body []byte) ([]score.Query, error) {
	if err := v.Validate(body); err != nil {
		return nil, err
	}

	var items []hotelListItem
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("invalid hotel list: %w", err)
	}

	queries := make([]score.Query, 0, len(items))
	for i, item := range items {
		hotelID, err := parseID(item.HotelID)
		if err != nil {
			return nil, fmt.Errorf("invalid hotel list: item %d hotelId: %w", i, err)
		}
		countryID, err := parseID(item.CountryID)
		if err != nil {
			return nil, fmt.Errorf("invalid hotel list: item %d countryId: %w", i, err)
		}
		queries = append(queries, score.Query{HotelID: hotelID, CountryID: countryID})
	}
	return queries, nil
}

// parseID reads an integral JSON number, including exponent and fraction forms.
func parseID(n json.Number) (int64, error) {
	r, ok := new(big.Rat).SetString(n.String())
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return 0, fmt.Errorf("%q is not an int64", n.String())
	}
	return r.Num().Int64(), nil
}

func newHotelListValidator() *hotelListValidator {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(hotelListSchema))
	if err != nil {
		panic("server: invalid hotel list schema: " + err.Error())
	}
	return &hotelListValidator{schema: schema}
}
