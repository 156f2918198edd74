// Package wine defines the canonical wine-review record and the
// parse-and-normalize step that turns raw line-delimited JSON into it.
// Aliasing (designation→vineyard) and derived fields are explicit
// construction steps here, not hidden validator hooks.
package wine

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a validated, normalized wine review ready for storage.
// Invariants: ID, Points and Title are always set, Country is never
// empty ("Unknown" when the source omits it), and every string field
// is trimmed of surrounding whitespace.
type Record struct {
	ID                  int      `json:"id"`
	Points              int      `json:"points"`
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	Price               *float64 `json:"price,omitempty"`
	Variety             string   `json:"variety,omitempty"`
	Winery              string   `json:"winery,omitempty"`
	Vineyard            string   `json:"vineyard,omitempty"`
	Country             string   `json:"country"`
	Province            string   `json:"province,omitempty"`
	Region1             string   `json:"region_1,omitempty"`
	Region2             string   `json:"region_2,omitempty"`
	TasterName          string   `json:"taster_name,omitempty"`
	TasterTwitterHandle string   `json:"taster_twitter_handle,omitempty"`
}

// flexInt accepts JSON numbers and numeric strings; the source dump
// stores points as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(strings.Trim(string(data), `"`))
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// rawRecord mirrors the source JSON, including the aliased key.
type rawRecord struct {
	ID                  *flexInt `json:"id"`
	Points              *flexInt `json:"points"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Price               *float64 `json:"price"`
	Variety             string   `json:"variety"`
	Winery              string   `json:"winery"`
	Designation         string   `json:"designation"`
	Vineyard            string   `json:"vineyard"`
	Country             string   `json:"country"`
	Province            string   `json:"province"`
	Region1             string   `json:"region_1"`
	Region2             string   `json:"region_2"`
	TasterName          string   `json:"taster_name"`
	TasterTwitterHandle string   `json:"taster_twitter_handle"`
}

// Parse validates and normalizes one raw JSON record. It is pure and
// safe to call concurrently. On failure the returned error is a
// *FieldError naming the offending field.
func Parse(data []byte) (Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, NewFieldError("record", firstBytes(data, 40), ErrMalformed)
	}

	if raw.ID == nil {
		return Record{}, NewFieldError("id", "", ErrMissingID)
	}
	if *raw.ID <= 0 {
		return Record{}, NewFieldError("id", strconv.Itoa(int(*raw.ID)), ErrInvalidID)
	}
	if raw.Points == nil {
		return Record{}, NewFieldError("points", "", ErrMissingPoints)
	}
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return Record{}, NewFieldError("title", "", ErrMissingTitle)
	}

	rec := Record{
		ID:                  int(*raw.ID),
		Points:              int(*raw.Points),
		Title:               title,
		Description:         strings.TrimSpace(raw.Description),
		Price:               raw.Price,
		Variety:             strings.TrimSpace(raw.Variety),
		Winery:              strings.TrimSpace(raw.Winery),
		Vineyard:            strings.TrimSpace(raw.Designation),
		Country:             strings.TrimSpace(raw.Country),
		Province:            strings.TrimSpace(raw.Province),
		Region1:             strings.TrimSpace(raw.Region1),
		Region2:             strings.TrimSpace(raw.Region2),
		TasterName:          strings.TrimSpace(raw.TasterName),
		TasterTwitterHandle: strings.TrimSpace(raw.TasterTwitterHandle),
	}

	// The source aliases vineyard as "designation"; accept either, with
	// the alias winning when both are present.
	if rec.Vineyard == "" {
		rec.Vineyard = strings.TrimSpace(raw.Vineyard)
	}

	// Country must always be queryable.
	if rec.Country == "" {
		rec.Country = "Unknown"
	}

	return rec, nil
}

// ToVectorize derives the embedding input: the non-empty subset of
// {variety, title, description}, space-joined and trimmed. The derived
// text is never stored.
func (r Record) ToVectorize() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{r.Variety, r.Title, r.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// PeekID extracts the id from a raw record without full validation,
// for reporting on records that fail to parse. Returns 0 if absent.
func PeekID(data []byte) int {
	var probe struct {
		ID flexInt `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0
	}
	return int(probe.ID)
}

func firstBytes(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}
