// Package sortedindex implements a generic immutable ordered container of
// string-keyed entries. Keys are unique and stored strictly ascending, which
// makes exact lookups and prefix-range queries two binary searches each.
package sortedindex

import (
	"sort"
)

// Pair is one key/value entry in the input batch.
type Pair[V any] struct {
	Key   string
	Value V
}

// Index holds entries sorted strictly ascending by key. It is append-only
// during construction and frozen afterwards; all read methods are safe for
// concurrent use.
type Index[V any] struct {
	keys   []string
	values []V
}

// FromPairs builds an Index from an unsorted batch. Duplicate keys are merged
// with the caller-supplied combine function, left-to-right in input order.
// A nil combine keeps the first value for a duplicated key.
func FromPairs[V any](pairs []Pair[V], combine func(dst, src V) V) *Index[V] {
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	ix := &Index[V]{
		keys:   make([]string, 0, len(pairs)),
		values: make([]V, 0, len(pairs)),
	}
	for _, p := range pairs {
		n := len(ix.keys)
		if n > 0 && ix.keys[n-1] == p.Key {
			if combine != nil {
				ix.values[n-1] = combine(ix.values[n-1], p.Value)
			}
			continue
		}
		ix.keys = append(ix.keys, p.Key)
		ix.values = append(ix.values, p.Value)
	}
	return ix
}

// FromSorted wraps key and value slices that are already strictly ascending
// and parallel, without copying. Used on the codec decode path.
func FromSorted[V any](keys []string, values []V) *Index[V] {
	return &Index[V]{keys: keys, values: values}
}

func (ix *Index[V]) Len() int {
	return len(ix.keys)
}

func (ix *Index[V]) Key(i int) string {
	return ix.keys[i]
}

func (ix *Index[V]) Value(i int) V {
	return ix.values[i]
}

// Get returns the value stored under exactly key.
func (ix *Index[V]) Get(key string) (V, bool) {
	i := sort.SearchStrings(ix.keys, key)
	if i < len(ix.keys) && ix.keys[i] == key {
		return ix.values[i], true
	}
	var zero V
	return zero, false
}

// PrefixRange returns the half-open index interval [lo, hi) of keys starting
// with prefix. The empty prefix spans the whole index. Cost is O(log n)
// regardless of the size of the matched range.
func (ix *Index[V]) PrefixRange(prefix string) (lo, hi int) {
	lo = sort.SearchStrings(ix.keys, prefix)
	if succ, ok := PrefixSuccessor(prefix); ok {
		hi = sort.SearchStrings(ix.keys, succ)
	} else {
		hi = len(ix.keys)
	}
	return lo, hi
}

// KeysWithPrefix collects up to max keys starting with prefix, in ascending
// order. max <= 0 means no cap.
func (ix *Index[V]) KeysWithPrefix(prefix string, max int) []string {
	lo, hi := ix.PrefixRange(prefix)
	if max > 0 && hi-lo > max {
		hi = lo + max
	}
	out := make([]string, hi-lo)
	copy(out, ix.keys[lo:hi])
	return out
}

// PrefixSuccessor returns the smallest string greater than every string with
// the given prefix, and false when no such string exists (empty prefix or
// all-0xff). Trailing 0xff bytes are trimmed before incrementing.
func PrefixSuccessor(prefix string) (string, bool) {
	end := len(prefix)
	for end > 0 && prefix[end-1] == 0xff {
		end--
	}
	if end == 0 {
		return "", false
	}
	b := []byte(prefix[:end])
	b[end-1]++
	return string(b), true
}
