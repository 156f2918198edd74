package wine

import (
	"errors"
	"testing"
)

func TestParseValidRecord(t *testing.T) {
	raw := []byte(`{
		"id": 3845,
		"points": "88",
		"title": "  Stemmari 2013 Nero d'Avola (Sicilia)  ",
		"description": "Aromas of ripe plum",
		"price": 9.0,
		"variety": "Nero d'Avola",
		"winery": "Stemmari",
		"designation": "Vigna Grande",
		"country": "Italy",
		"province": "Sicily & Sardinia",
		"region_1": "Sicilia",
		"taster_name": "Kerin O'Keefe",
		"taster_twitter_handle": "@kerinokeefe"
	}`)
	rec, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.ID != 3845 {
		t.Errorf("ID = %d, want 3845", rec.ID)
	}
	if rec.Points != 88 {
		t.Errorf("Points = %d, want 88", rec.Points)
	}
	if rec.Title != "Stemmari 2013 Nero d'Avola (Sicilia)" {
		t.Errorf("Title not trimmed: %q", rec.Title)
	}
	if rec.Vineyard != "Vigna Grande" {
		t.Errorf("Vineyard = %q, want designation alias applied", rec.Vineyard)
	}
	if rec.Price == nil || *rec.Price != 9.0 {
		t.Errorf("Price = %v, want 9.0", rec.Price)
	}
	if rec.Region1 != "Sicilia" {
		t.Errorf("Region1 = %q", rec.Region1)
	}
}

func TestParseCountryDefaultsToUnknown(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"absent", `{"id": 1, "points": 90, "title": "A Wine"}`},
		{"empty", `{"id": 1, "points": 90, "title": "A Wine", "country": ""}`},
		{"blank", `{"id": 1, "points": 90, "title": "A Wine", "country": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if rec.Country != "Unknown" {
				t.Errorf("Country = %q, want Unknown", rec.Country)
			}
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{not json`, ErrMalformed},
		{"missing id", `{"points": 90, "title": "A"}`, ErrMissingID},
		{"zero id", `{"id": 0, "points": 90, "title": "A"}`, ErrInvalidID},
		{"negative id", `{"id": -5, "points": 90, "title": "A"}`, ErrInvalidID},
		{"missing points", `{"id": 1, "title": "A"}`, ErrMissingPoints},
		{"missing title", `{"id": 1, "points": 90}`, ErrMissingTitle},
		{"blank title", `{"id": 1, "points": 90, "title": "   "}`, ErrMissingTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Errorf("err %v is not a *FieldError", err)
			}
		})
	}
}

func TestToVectorize(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			"all fields",
			Record{Variety: "Merlot", Title: "Foo 2010", Description: "dark fruit"},
			"Merlot Foo 2010 dark fruit",
		},
		{
			"empty description skipped",
			Record{Variety: "Merlot", Title: "Foo 2010"},
			"Merlot Foo 2010",
		},
		{
			"title only",
			Record{Title: "Foo 2010"},
			"Foo 2010",
		},
		{
			"all empty",
			Record{},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.ToVectorize(); got != tt.want {
				t.Errorf("ToVectorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPeekID(t *testing.T) {
	if got := PeekID([]byte(`{"id": 77, "title": "x"}`)); got != 77 {
		t.Errorf("PeekID = %d, want 77", got)
	}
	if got := PeekID([]byte(`{garbage`)); got != 0 {
		t.Errorf("PeekID on garbage = %d, want 0", got)
	}
}
