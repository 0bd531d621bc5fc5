// Package world implements the compact hierarchical address index: an
// immutable Country → City → Zip → Street → Housenumber structure with
// deduplicated, sorted components, plus the batch builder that constructs it
// and the binary codec that persists it.
//
// A World is built once, optionally encoded to disk, and then shared
// read-only between any number of concurrent queries. Street names and
// housenumbers are interned in world-scoped pools; the references stored in
// the hierarchy are meaningless outside their owning World.
package world

import (
	"strconv"
	"strings"

	"github.com/addrindex/addrindex/internal/interner"
	"github.com/addrindex/addrindex/internal/sortedindex"
)

// World is the root of the index: an ordered mapping from ISO country code
// to Country, plus the string pools backing the two interned levels.
type World struct {
	streetNames  *interner.Interner
	housenumbers *interner.Interner
	countries    *sortedindex.Index[*Country]
}

// Country is an ordered mapping from city name to City.
type Country struct {
	cities *sortedindex.Index[*City]
}

// City is an ordered mapping from postcode to Zip. Postcodes sort as strings;
// they are not numeric in all countries.
type City struct {
	zips *sortedindex.Index[*Zip]
}

// Zip holds streets sorted ascending by resolved street name.
type Zip struct {
	streets []Street
}

// Street is an interned street name plus its housenumbers, sorted ascending
// by rendered value.
type Street struct {
	name interner.Ref
	nums []Housenumber
}

// Housenumber is a tagged 32-bit value: with the inline bit set the low bits
// are a small integer stored directly ("42"), otherwise it is a reference
// into the housenumber pool ("1A", "042").
type Housenumber uint32

const hnInline Housenumber = 1 << 31

// inlineHousenumber returns the inline encoding of s when its canonical
// decimal rendering round-trips and fits in 16 bits.
func inlineHousenumber(s string) (Housenumber, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 65535 {
		return 0, false
	}
	if strconv.Itoa(v) != s {
		return 0, false
	}
	return hnInline | Housenumber(v), true
}

func (w *World) housenumberString(h Housenumber) string {
	if h&hnInline != 0 {
		return strconv.Itoa(int(h &^ hnInline))
	}
	return w.housenumbers.Resolve(interner.Ref(h))
}

// Country returns the Country stored under exactly code.
func (w *World) Country(code string) (*Country, bool) {
	return w.countries.Get(code)
}

// CountryCount returns the number of countries in the world.
func (w *World) CountryCount() int {
	return w.countries.Len()
}

// Stats summarises the size of the world for logs and the stats endpoint.
type Stats struct {
	Countries       int `json:"countries"`
	StreetNames     int `json:"street_names"`
	HousenumberPool int `json:"housenumber_pool"`
}

func (w *World) Stats() Stats {
	return Stats{
		Countries:       w.countries.Len(),
		StreetNames:     w.streetNames.Len(),
		HousenumberPool: w.housenumbers.Len(),
	}
}

// City returns the City stored under exactly name.
func (c *Country) City(name string) (*City, bool) {
	return c.cities.Get(name)
}

// CitiesWithPrefix returns up to max city names starting with prefix, in
// ascending order. max <= 0 means no cap.
func (c *Country) CitiesWithPrefix(prefix string, max int) []string {
	return c.cities.KeysWithPrefix(prefix, max)
}

// Zip returns the Zip stored under exactly code.
func (ci *City) Zip(code string) (*Zip, bool) {
	return ci.zips.Get(code)
}

// ZipsWithPrefix returns up to max postcodes starting with prefix.
func (ci *City) ZipsWithPrefix(prefix string, max int) []string {
	return ci.zips.KeysWithPrefix(prefix, max)
}

// Street returns the Street in z stored under exactly name. The receiver is
// the World because street names resolve through its pool.
func (w *World) Street(z *Zip, name string) (*Street, bool) {
	i := searchStrings(len(z.streets), name, func(i int) string {
		return w.streetNames.Resolve(z.streets[i].name)
	})
	if i < len(z.streets) && w.streetNames.Resolve(z.streets[i].name) == name {
		return &z.streets[i], true
	}
	return nil, false
}

// StreetsWithPrefix returns up to max street names in z starting with prefix.
func (w *World) StreetsWithPrefix(z *Zip, prefix string, max int) []string {
	lo, hi := prefixRange(len(z.streets), prefix, func(i int) string {
		return w.streetNames.Resolve(z.streets[i].name)
	})
	if max > 0 && hi-lo > max {
		hi = lo + max
	}
	out := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, w.streetNames.Resolve(z.streets[i].name))
	}
	return out
}

// HousenumbersWithPrefix returns up to max housenumbers of st starting with
// prefix.
func (w *World) HousenumbersWithPrefix(st *Street, prefix string, max int) []string {
	lo, hi := prefixRange(len(st.nums), prefix, func(i int) string {
		return w.housenumberString(st.nums[i])
	})
	if max > 0 && hi-lo > max {
		hi = lo + max
	}
	out := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, w.housenumberString(st.nums[i]))
	}
	return out
}

// searchStrings is sort.SearchStrings over a virtual string slice.
func searchStrings(n int, target string, at func(i int) string) int {
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if at(mid) < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// prefixRange is Index.PrefixRange over a virtual string slice.
func prefixRange(n int, prefix string, at func(i int) string) (lo, hi int) {
	lo = searchStrings(n, prefix, at)
	if succ, ok := sortedindex.PrefixSuccessor(prefix); ok {
		hi = searchStrings(n, succ, at)
	} else {
		hi = n
	}
	return lo, hi
}

// Equal reports whether two worlds hold the same entries in the same order.
// Interner numbering may differ between independently built worlds; the
// comparison is on resolved strings.
func Equal(a, b *World) bool {
	if a.countries.Len() != b.countries.Len() {
		return false
	}
	for i := 0; i < a.countries.Len(); i++ {
		if a.countries.Key(i) != b.countries.Key(i) {
			return false
		}
		if !equalCountry(a, a.countries.Value(i), b, b.countries.Value(i)) {
			return false
		}
	}
	return true
}

func equalCountry(wa *World, a *Country, wb *World, b *Country) bool {
	if a.cities.Len() != b.cities.Len() {
		return false
	}
	for i := 0; i < a.cities.Len(); i++ {
		if a.cities.Key(i) != b.cities.Key(i) {
			return false
		}
		if !equalCity(wa, a.cities.Value(i), wb, b.cities.Value(i)) {
			return false
		}
	}
	return true
}

func equalCity(wa *World, a *City, wb *World, b *City) bool {
	if a.zips.Len() != b.zips.Len() {
		return false
	}
	for i := 0; i < a.zips.Len(); i++ {
		if a.zips.Key(i) != b.zips.Key(i) {
			return false
		}
		za, zb := a.zips.Value(i), b.zips.Value(i)
		if len(za.streets) != len(zb.streets) {
			return false
		}
		for j := range za.streets {
			sa, sb := &za.streets[j], &zb.streets[j]
			if wa.streetNames.Resolve(sa.name) != wb.streetNames.Resolve(sb.name) {
				return false
			}
			if len(sa.nums) != len(sb.nums) {
				return false
			}
			for k := range sa.nums {
				if wa.housenumberString(sa.nums[k]) != wb.housenumberString(sb.nums[k]) {
					return false
				}
			}
		}
	}
	return true
}

// String renders a compact summary, not the full contents.
func (w *World) String() string {
	var sb strings.Builder
	sb.WriteString("world{countries=")
	sb.WriteString(strconv.Itoa(w.countries.Len()))
	sb.WriteString(", street_names=")
	sb.WriteString(strconv.Itoa(w.streetNames.Len()))
	sb.WriteString(", housenumber_pool=")
	sb.WriteString(strconv.Itoa(w.housenumbers.Len()))
	sb.WriteString("}")
	return sb.String()
}
