// Package address defines the raw address record exchanged between the
// extraction pipeline, the record sources, and the world builder, together
// with the salvageability rules applied to incomplete OSM records.
package address

import (
	"github.com/biter777/countries"
)

// Record is one complete address tuple. Fields are opaque strings; OSM data
// is noisy and no semantic validation is applied.
type Record struct {
	Country     string `json:"country"`
	City        string `json:"city"`
	Postcode    string `json:"postcode"`
	Street      string `json:"street"`
	Housenumber string `json:"housenumber"`
}

// Incomplete is a record as emitted by the extraction stage, where any tag
// may be absent. Absent and empty are distinct: an extractor only sets a
// field when the corresponding addr:* tag existed.
type Incomplete struct {
	Country     *string `json:"country"`
	City        *string `json:"city"`
	Postcode    *string `json:"postcode"`
	Street      *string `json:"street"`
	Housenumber *string `json:"housenumber"`
}

// IsComplete reports whether all five fields are present.
func (r Incomplete) IsComplete() bool {
	return r.Country != nil && r.City != nil && r.Postcode != nil &&
		r.Street != nil && r.Housenumber != nil
}

// Unfixable reports whether the record carries too little information to ever
// be completed: street or housenumber missing, or fewer than two of
// {country, city, postcode} present.
func (r Incomplete) Unfixable() bool {
	if r.IsComplete() {
		return false
	}
	if r.Housenumber == nil || r.Street == nil {
		return true
	}
	present := 0
	for _, f := range []*string{r.Country, r.City, r.Postcode} {
		if f != nil {
			present++
		}
	}
	return present < 2
}

// Record flattens to a Record, with absent fields becoming empty strings.
func (r Incomplete) Record() Record {
	return Record{
		Country:     deref(r.Country),
		City:        deref(r.City),
		Postcode:    deref(r.Postcode),
		Street:      deref(r.Street),
		Housenumber: deref(r.Housenumber),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NormalizeCountry maps full country names ("Germany", "India") to their
// ISO 3166-1 alpha-2 code. Values that already are a valid alpha-2 code, and
// values with no ISO match, pass through verbatim.
func NormalizeCountry(c string) string {
	if len(c) == 2 {
		if cc := countries.ByName(c); cc != countries.Unknown {
			return c
		}
	}
	if cc := countries.ByName(c); cc != countries.Unknown {
		return cc.Alpha2()
	}
	return c
}
