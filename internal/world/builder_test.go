package world

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/addrindex/addrindex/internal/address"
	apperrors "github.com/addrindex/addrindex/pkg/errors"
)

func rec(country, city, zip, street, hn string) address.Record {
	return address.Record{
		Country:     country,
		City:        city,
		Postcode:    zip,
		Street:      street,
		Housenumber: hn,
	}
}

func buildWorld(t *testing.T, recs ...address.Record) *World {
	t.Helper()
	b := NewBuilder(2)
	if err := b.AddBatch(recs); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	w, err := b.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return w
}

func testWorld(t *testing.T) *World {
	t.Helper()
	return buildWorld(t,
		rec("GB", "London", "E1", "Strand", "1"),
		rec("GB", "London", "E1", "Strand", "2"),
		rec("GB", "London", "E1", "Strand", "1A"),
		rec("GB", "London", "E1", "Fleet Street", "10"),
		rec("GB", "London", "E2", "Strand", "7"),
		rec("GB", "Leeds", "LS1", "Briggate", "3"),
		rec("DE", "Berlin", "10115", "Invalidenstraße", "43"),
	)
}

func TestBuildHierarchy(t *testing.T) {
	w := testWorld(t)

	if w.CountryCount() != 2 {
		t.Fatalf("expected 2 countries, got %d", w.CountryCount())
	}
	gb, ok := w.Country("GB")
	if !ok {
		t.Fatal("expected country GB")
	}
	if got := gb.CitiesWithPrefix("", 0); !reflect.DeepEqual(got, []string{"Leeds", "London"}) {
		t.Errorf("GB cities = %v, want [Leeds London]", got)
	}

	london, ok := gb.City("London")
	if !ok {
		t.Fatal("expected city London")
	}
	if got := london.ZipsWithPrefix("", 0); !reflect.DeepEqual(got, []string{"E1", "E2"}) {
		t.Errorf("London zips = %v, want [E1 E2]", got)
	}

	e1, ok := london.Zip("E1")
	if !ok {
		t.Fatal("expected zip E1")
	}
	if got := w.StreetsWithPrefix(e1, "", 0); !reflect.DeepEqual(got, []string{"Fleet Street", "Strand"}) {
		t.Errorf("E1 streets = %v, want [Fleet Street Strand]", got)
	}

	strand, ok := w.Street(e1, "Strand")
	if !ok {
		t.Fatal("expected street Strand in E1")
	}
	if got := w.HousenumbersWithPrefix(strand, "", 0); !reflect.DeepEqual(got, []string{"1", "1A", "2"}) {
		t.Errorf("Strand housenumbers = %v, want [1 1A 2]", got)
	}
}

func TestBuildDeduplicatesRecords(t *testing.T) {
	r := rec("GB", "London", "E1", "Strand", "1")
	w := buildWorld(t, r, r, r)

	gb, _ := w.Country("GB")
	london, _ := gb.City("London")
	e1, _ := london.Zip("E1")
	strand, _ := w.Street(e1, "Strand")
	if got := w.HousenumbersWithPrefix(strand, "", 0); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("housenumbers after duplicate adds = %v, want [1]", got)
	}
}

func TestBuildMergesByUnion(t *testing.T) {
	w := buildWorld(t,
		rec("GB", "London", "E1", "Strand", "1"),
		rec("GB", "London", "E1", "Strand", "5"),
		rec("GB", "London", "E1", "Strand", "3"),
	)

	gb, _ := w.Country("GB")
	london, _ := gb.City("London")
	e1, _ := london.Zip("E1")
	strand, _ := w.Street(e1, "Strand")
	if got := w.HousenumbersWithPrefix(strand, "", 0); !reflect.DeepEqual(got, []string{"1", "3", "5"}) {
		t.Errorf("merged housenumbers = %v, want [1 3 5]", got)
	}
}

func TestPrefixQueriesAreByteExact(t *testing.T) {
	w := testWorld(t)
	gb, _ := w.Country("GB")

	if got := gb.CitiesWithPrefix("lond", 0); len(got) != 0 {
		t.Errorf("lowercase prefix matched %v, expected no byte-exact match", got)
	}
	if got := gb.CitiesWithPrefix("Lond", 0); !reflect.DeepEqual(got, []string{"London"}) {
		t.Errorf("CitiesWithPrefix(Lond) = %v, want [London]", got)
	}
}

func TestMaxOneReturnsLexicographicFirst(t *testing.T) {
	w := testWorld(t)
	gb, _ := w.Country("GB")

	if got := gb.CitiesWithPrefix("L", 1); !reflect.DeepEqual(got, []string{"Leeds"}) {
		t.Errorf("CitiesWithPrefix(L, 1) = %v, want [Leeds]", got)
	}
}

func TestHousenumberOrderIsLexicographic(t *testing.T) {
	w := buildWorld(t,
		rec("GB", "London", "E1", "Strand", "2"),
		rec("GB", "London", "E1", "Strand", "10"),
		rec("GB", "London", "E1", "Strand", "007"),
	)

	gb, _ := w.Country("GB")
	london, _ := gb.City("London")
	e1, _ := london.Zip("E1")
	strand, _ := w.Street(e1, "Strand")
	// "007" does not round-trip through Itoa so it stays a pool string, and
	// ordering is by rendered value, not numeric.
	if got := w.HousenumbersWithPrefix(strand, "", 0); !reflect.DeepEqual(got, []string{"007", "10", "2"}) {
		t.Errorf("housenumbers = %v, want [007 10 2]", got)
	}
}

func TestBuilderRejectsUseAfterFinalize(t *testing.T) {
	b := NewBuilder(1)
	if err := b.Add(rec("GB", "London", "E1", "Strand", "1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := b.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := b.Add(rec("GB", "London", "E1", "Strand", "2")); !errors.Is(err, apperrors.ErrBuilderFinalized) {
		t.Errorf("Add after Finalize = %v, want ErrBuilderFinalized", err)
	}
	if _, err := b.Finalize(context.Background()); !errors.Is(err, apperrors.ErrBuilderFinalized) {
		t.Errorf("second Finalize = %v, want ErrBuilderFinalized", err)
	}
}

func TestFinalizeCancelled(t *testing.T) {
	b := NewBuilder(1)
	if err := b.Add(rec("GB", "London", "E1", "Strand", "1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Finalize(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Finalize with cancelled context = %v, want context.Canceled", err)
	}
}

func TestStats(t *testing.T) {
	w := testWorld(t)
	s := w.Stats()

	if s.Countries != 2 {
		t.Errorf("Countries = %d, want 2", s.Countries)
	}
	// Strand, Fleet Street, Briggate, Invalidenstraße.
	if s.StreetNames != 4 {
		t.Errorf("StreetNames = %d, want 4", s.StreetNames)
	}
	// Only "1A" misses the inline encoding.
	if s.HousenumberPool != 1 {
		t.Errorf("HousenumberPool = %d, want 1", s.HousenumberPool)
	}
}

func TestInlineHousenumber(t *testing.T) {
	tests := []struct {
		in     string
		inline bool
	}{
		{"0", true},
		{"1", true},
		{"65535", true},
		{"65536", false},
		{"-1", false},
		{"007", false},
		{"1A", false},
		{"", false},
		{"+7", false},
	}
	for _, tt := range tests {
		h, ok := inlineHousenumber(tt.in)
		if ok != tt.inline {
			t.Errorf("inlineHousenumber(%q) inline = %v, want %v", tt.in, ok, tt.inline)
			continue
		}
		if ok {
			w := &World{}
			if got := w.housenumberString(h); got != tt.in {
				t.Errorf("housenumberString(inline %q) = %q", tt.in, got)
			}
		}
	}
}
