package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/addrindex/addrindex/internal/address"
	"github.com/addrindex/addrindex/internal/world"
	apperrors "github.com/addrindex/addrindex/pkg/errors"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	b := world.NewBuilder(1)
	recs := []address.Record{
		{Country: "GB", City: "London", Postcode: "E1", Street: "Strand", Housenumber: "1"},
		{Country: "GB", City: "London", Postcode: "E1", Street: "Strand", Housenumber: "2"},
		{Country: "GB", City: "London", Postcode: "E1", Street: "Fleet Street", Housenumber: "10"},
		{Country: "GB", City: "Leeds", Postcode: "LS1", Street: "Briggate", Housenumber: "3"},
		{Country: "DE", City: "Berlin", Postcode: "10115", Street: "Invalidenstraße", Housenumber: "43"},
	}
	if err := b.AddBatch(recs); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	w, err := b.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return New(w)
}

func TestCities(t *testing.T) {
	e := testEngine(t)

	got, err := e.Cities("GB", "L", 0)
	if err != nil {
		t.Fatalf("Cities: %v", err)
	}
	if want := []string{"Leeds", "London"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Cities = %v, want %v", got, want)
	}
}

func TestCitiesUnknownCountry(t *testing.T) {
	e := testEngine(t)

	if _, err := e.Cities("FR", "", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Cities for unknown country = %v, want ErrNotFound", err)
	}
}

func TestCitiesNoPrefixMatchIsNotAnError(t *testing.T) {
	e := testEngine(t)

	got, err := e.Cities("GB", "Zzz", 0)
	if err != nil {
		t.Fatalf("Cities: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Cities = %v, want empty", got)
	}
}

func TestZips(t *testing.T) {
	e := testEngine(t)

	got, err := e.Zips("GB", "London", "E", 0)
	if err != nil {
		t.Fatalf("Zips: %v", err)
	}
	if want := []string{"E1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Zips = %v, want %v", got, want)
	}

	if _, err := e.Zips("GB", "Bristol", "", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Zips for unknown city = %v, want ErrNotFound", err)
	}
}

func TestStreets(t *testing.T) {
	e := testEngine(t)

	got, err := e.Streets("GB", "London", "E1", "", 0)
	if err != nil {
		t.Fatalf("Streets: %v", err)
	}
	if want := []string{"Fleet Street", "Strand"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Streets = %v, want %v", got, want)
	}

	if _, err := e.Streets("GB", "London", "E9", "", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Streets for unknown zip = %v, want ErrNotFound", err)
	}
}

func TestHousenumbers(t *testing.T) {
	e := testEngine(t)

	got, err := e.Housenumbers("GB", "London", "E1", "Strand", "", 0)
	if err != nil {
		t.Fatalf("Housenumbers: %v", err)
	}
	if want := []string{"1", "2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Housenumbers = %v, want %v", got, want)
	}

	if _, err := e.Housenumbers("GB", "London", "E1", "Aldwych", "", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Housenumbers for unknown street = %v, want ErrNotFound", err)
	}
}

func TestMaxCapsResults(t *testing.T) {
	e := testEngine(t)

	got, err := e.Housenumbers("GB", "London", "E1", "Strand", "", 1)
	if err != nil {
		t.Fatalf("Housenumbers: %v", err)
	}
	if want := []string{"1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Housenumbers with max=1 = %v, want %v", got, want)
	}
}

// Ancestors match exactly, never by prefix.
func TestAncestorsMatchExactly(t *testing.T) {
	e := testEngine(t)

	if _, err := e.Zips("GB", "Lond", "", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Zips with truncated city = %v, want ErrNotFound", err)
	}
	if _, err := e.Streets("G", "London", "E1", "", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Streets with truncated country = %v, want ErrNotFound", err)
	}
}
