package address

import "testing"

func ptr(s string) *string { return &s }

func TestIsComplete(t *testing.T) {
	full := Incomplete{
		Country:     ptr("DE"),
		City:        ptr("Berlin"),
		Postcode:    ptr("10115"),
		Street:      ptr("Invalidenstraße"),
		Housenumber: ptr("43"),
	}
	if !full.IsComplete() {
		t.Error("expected record with all fields to be complete")
	}

	partial := full
	partial.City = nil
	if partial.IsComplete() {
		t.Error("expected record with missing city to be incomplete")
	}
}

func TestUnfixable(t *testing.T) {
	tests := []struct {
		name string
		rec  Incomplete
		want bool
	}{
		{
			"complete",
			Incomplete{Country: ptr("DE"), City: ptr("Berlin"), Postcode: ptr("10115"), Street: ptr("A"), Housenumber: ptr("1")},
			false,
		},
		{
			"missing street",
			Incomplete{Country: ptr("DE"), City: ptr("Berlin"), Postcode: ptr("10115"), Housenumber: ptr("1")},
			true,
		},
		{
			"missing housenumber",
			Incomplete{Country: ptr("DE"), City: ptr("Berlin"), Postcode: ptr("10115"), Street: ptr("A")},
			true,
		},
		{
			"missing country only",
			Incomplete{City: ptr("Berlin"), Postcode: ptr("10115"), Street: ptr("A"), Housenumber: ptr("1")},
			false,
		},
		{
			"only city of the location fields",
			Incomplete{City: ptr("Berlin"), Street: ptr("A"), Housenumber: ptr("1")},
			true,
		},
		{
			"country and postcode present",
			Incomplete{Country: ptr("DE"), Postcode: ptr("10115"), Street: ptr("A"), Housenumber: ptr("1")},
			false,
		},
		{
			"empty record",
			Incomplete{},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Unfixable(); got != tt.want {
				t.Errorf("Unfixable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordFlattens(t *testing.T) {
	inc := Incomplete{Country: ptr("DE"), Street: ptr("A"), Housenumber: ptr("1")}
	rec := inc.Record()

	if rec.Country != "DE" || rec.Street != "A" || rec.Housenumber != "1" {
		t.Errorf("unexpected flattened record %+v", rec)
	}
	if rec.City != "" || rec.Postcode != "" {
		t.Errorf("expected absent fields to flatten to empty strings, got %+v", rec)
	}
}

func TestNormalizeCountry(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DE", "DE"},
		{"GB", "GB"},
		{"Germany", "DE"},
		{"India", "IN"},
		{"Atlantis", "Atlantis"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCountry(tt.in); got != tt.want {
			t.Errorf("NormalizeCountry(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
