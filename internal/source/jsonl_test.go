package source

import (
	"context"
	"strings"
	"testing"

	"github.com/addrindex/addrindex/internal/address"
)

func drainAll(t *testing.T, input string) ([]address.Record, *JSONL) {
	t.Helper()
	src := NewJSONL(strings.NewReader(input))
	var recs []address.Record
	err := Drain(context.Background(), src, func(rec address.Record) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	return recs, src
}

func TestJSONLReadsRecords(t *testing.T) {
	input := `{"country":"GB","city":"London","postcode":"E1","street":"Strand","housenumber":"1"}
{"country":"DE","city":"Berlin","postcode":"10115","street":"Invalidenstraße","housenumber":"43"}
`
	recs, _ := drainAll(t, input)

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	want := address.Record{Country: "GB", City: "London", Postcode: "E1", Street: "Strand", Housenumber: "1"}
	if recs[0] != want {
		t.Errorf("first record = %+v, want %+v", recs[0], want)
	}
}

func TestJSONLStripsEntityTags(t *testing.T) {
	input := `nod {"country":"GB","city":"London","postcode":"E1","street":"Strand","housenumber":"1"}
way {"country":"GB","city":"London","postcode":"E1","street":"Strand","housenumber":"2"}
rel {"country":"GB","city":"London","postcode":"E1","street":"Strand","housenumber":"3"}
`
	recs, _ := drainAll(t, input)

	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, hn := range []string{"1", "2", "3"} {
		if recs[i].Housenumber != hn {
			t.Errorf("record %d housenumber = %q, want %q", i, recs[i].Housenumber, hn)
		}
	}
}

func TestJSONLSkipsBadLines(t *testing.T) {
	input := `{"country":"GB","city":"London","postcode":"E1","street":"Strand","housenumber":"1"}
this is not json
{"city":"London"}
{"country":"GB","postcode":"E1","street":"Strand","housenumber":"2"}

`
	recs, src := drainAll(t, input)

	// Line 4 is missing the city but still salvageable, so it passes through.
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(recs), recs)
	}
	accepted, skipped, malformed := src.Counts()
	if accepted != 2 || skipped != 1 || malformed != 1 {
		t.Errorf("Counts = (%d, %d, %d), want (2, 1, 1)", accepted, skipped, malformed)
	}
}

func TestJSONLNormalizesCountry(t *testing.T) {
	input := `{"country":"Germany","city":"Berlin","postcode":"10115","street":"A","housenumber":"1"}
`
	recs, _ := drainAll(t, input)

	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Country != "DE" {
		t.Errorf("country = %q, want DE", recs[0].Country)
	}
}

func TestJSONLContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewJSONL(strings.NewReader(`{"country":"GB","city":"London","postcode":"E1","street":"S","housenumber":"1"}`))
	if _, err := src.Next(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestStripEntityTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"nod {}", "{}"},
		{"way {}", "{}"},
		{"rel {}", "{}"},
		{"{}", "{}"},
		{"node {}", "node {}"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := string(stripEntityTag([]byte(tt.in))); got != tt.want {
			t.Errorf("stripEntityTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
