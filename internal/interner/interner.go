// Package interner deduplicates repeated strings (street names, house
// numbers) into a single append-only pool, returning stable integer
// references. A Ref is only meaningful within the Interner that produced it.
package interner

// Ref is a lightweight reference into an Interner's pool.
type Ref uint32

// Interner owns a pool of unique strings. Intern is single-writer during a
// build; after the build only Resolve is used and the Interner is safe for
// concurrent reads.
type Interner struct {
	pool   []string
	lookup map[string]Ref
}

func New() *Interner {
	return &Interner{lookup: make(map[string]Ref)}
}

// FromPool reconstructs an Interner around an already-deduplicated pool, as
// produced by the world codec. The resulting Interner is resolve-only until
// Intern is first called, at which point the lookup table is rebuilt.
func FromPool(pool []string) *Interner {
	return &Interner{pool: pool}
}

// Intern returns the existing Ref for s if it was seen before (bit-exact
// match), otherwise appends s to the pool and returns a fresh Ref.
func (in *Interner) Intern(s string) Ref {
	if in.lookup == nil {
		in.lookup = make(map[string]Ref, len(in.pool))
		for i, v := range in.pool {
			in.lookup[v] = Ref(i)
		}
	}
	if r, ok := in.lookup[s]; ok {
		return r
	}
	r := Ref(len(in.pool))
	in.pool = append(in.pool, s)
	in.lookup[s] = r
	return r
}

// Resolve returns the string for r. It is total for any Ref produced by this
// Interner; a foreign or corrupted Ref panics, as would an out-of-range
// slice index.
func (in *Interner) Resolve(r Ref) string {
	return in.pool[r]
}

// Contains reports whether r is a valid reference into this pool.
func (in *Interner) Contains(r Ref) bool {
	return int(r) < len(in.pool)
}

// Len returns the number of unique strings in the pool.
func (in *Interner) Len() int {
	return len(in.pool)
}

// Pool exposes the backing pool for serialisation. Callers must not mutate it.
func (in *Interner) Pool() []string {
	return in.pool
}
