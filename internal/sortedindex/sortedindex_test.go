package sortedindex

import (
	"reflect"
	"testing"
)

func buildIndex(t *testing.T, keys ...string) *Index[int] {
	t.Helper()
	pairs := make([]Pair[int], len(keys))
	for i, k := range keys {
		pairs[i] = Pair[int]{Key: k, Value: i}
	}
	return FromPairs(pairs, nil)
}

func TestFromPairsSortsAndDeduplicates(t *testing.T) {
	ix := buildIndex(t, "berlin", "aachen", "cologne", "berlin", "aachen")

	if ix.Len() != 3 {
		t.Fatalf("expected 3 unique keys, got %d", ix.Len())
	}
	want := []string{"aachen", "berlin", "cologne"}
	for i, k := range want {
		if ix.Key(i) != k {
			t.Errorf("Key(%d) = %q, want %q", i, ix.Key(i), k)
		}
	}
}

func TestFromPairsKeepsFirstOnNilCombine(t *testing.T) {
	ix := FromPairs([]Pair[int]{
		{Key: "a", Value: 1},
		{Key: "a", Value: 2},
	}, nil)

	if v, _ := ix.Get("a"); v != 1 {
		t.Errorf("expected first value 1 kept for duplicate key, got %d", v)
	}
}

func TestFromPairsCombineMergesDuplicates(t *testing.T) {
	ix := FromPairs([]Pair[int]{
		{Key: "a", Value: 1},
		{Key: "b", Value: 10},
		{Key: "a", Value: 2},
		{Key: "a", Value: 4},
	}, func(dst, src int) int { return dst + src })

	if v, _ := ix.Get("a"); v != 7 {
		t.Errorf("expected combined value 7 for key a, got %d", v)
	}
	if v, _ := ix.Get("b"); v != 10 {
		t.Errorf("expected untouched value 10 for key b, got %d", v)
	}
}

func TestGet(t *testing.T) {
	ix := buildIndex(t, "berlin", "aachen", "cologne")

	if _, ok := ix.Get("berlin"); !ok {
		t.Error("expected to find existing key")
	}
	if _, ok := ix.Get("munich"); ok {
		t.Error("expected miss for absent key")
	}
	if _, ok := ix.Get("berl"); ok {
		t.Error("expected miss for strict prefix of an existing key")
	}
}

func TestKeysWithPrefix(t *testing.T) {
	ix := buildIndex(t, "berlin", "bergen", "bern", "cologne", "aachen")

	tests := []struct {
		prefix string
		max    int
		want   []string
	}{
		{"ber", 0, []string{"bergen", "berlin", "bern"}},
		{"ber", 2, []string{"bergen", "berlin"}},
		{"berlin", 0, []string{"berlin"}},
		{"", 0, []string{"aachen", "bergen", "berlin", "bern", "cologne"}},
		{"z", 0, []string{}},
		{"berx", 0, []string{}},
	}
	for _, tt := range tests {
		got := ix.KeysWithPrefix(tt.prefix, tt.max)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("KeysWithPrefix(%q, %d) = %v, want %v", tt.prefix, tt.max, got, tt.want)
		}
	}
}

func TestPrefixRangeEmptyIndex(t *testing.T) {
	ix := FromPairs[int](nil, nil)
	if lo, hi := ix.PrefixRange("a"); lo != 0 || hi != 0 {
		t.Errorf("PrefixRange on empty index = [%d, %d), want [0, 0)", lo, hi)
	}
}

func TestPrefixSuccessor(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"a", "b", true},
		{"abc", "abd", true},
		{"ab\xff", "ac", true},
		{"\xff\xff", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := PrefixSuccessor(tt.prefix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PrefixSuccessor(%q) = (%q, %v), want (%q, %v)", tt.prefix, got, ok, tt.want, tt.ok)
		}
	}
}

// Keys containing a 0xff byte must still fall inside the range computed for
// their prefix.
func TestPrefixRangeHighBytes(t *testing.T) {
	ix := buildIndex(t, "a\xff\xff", "a", "b")

	got := ix.KeysWithPrefix("a", 0)
	want := []string{"a", "a\xff\xff"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KeysWithPrefix(%q) = %v, want %v", "a", got, want)
	}
}
