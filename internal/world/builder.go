package world

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/addrindex/addrindex/internal/address"
	"github.com/addrindex/addrindex/internal/interner"
	"github.com/addrindex/addrindex/internal/sortedindex"
	apperrors "github.com/addrindex/addrindex/pkg/errors"
)

// Builder accumulates raw address records and finalizes them into an
// immutable World. It is single-writer: one goroutine calls Add until the
// record set is complete, then Finalize exactly once. Empty or malformed
// fields are kept verbatim as keys; upstream data quality is the caller's
// concern, not the index's.
type Builder struct {
	records     []address.Record
	parallelism int
	finalized   bool
	logger      *slog.Logger
}

// hnSet is the build-time multiset of housenumbers under one street.
type hnSet map[Housenumber]struct{}

// NewBuilder creates a Builder. parallelism bounds the number of countries
// finalized concurrently; <= 0 means GOMAXPROCS.
func NewBuilder(parallelism int) *Builder {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		parallelism: parallelism,
		logger:      slog.Default().With("component", "world-builder"),
	}
}

// Add buffers one record. Calling Add after Finalize is a programming error.
func (b *Builder) Add(rec address.Record) error {
	if b.finalized {
		return apperrors.ErrBuilderFinalized
	}
	b.records = append(b.records, rec)
	return nil
}

// AddBatch buffers a batch of records.
func (b *Builder) AddBatch(recs []address.Record) error {
	if b.finalized {
		return apperrors.ErrBuilderFinalized
	}
	b.records = append(b.records, recs...)
	return nil
}

// Len returns the number of buffered records.
func (b *Builder) Len() int {
	return len(b.records)
}

// Finalize interns street names and housenumbers, groups the buffered
// records into the country/city/zip/street hierarchy, sorts and deduplicates
// every level, and returns the immutable World. Records yielding the same
// key at any level merge by unioning their children. Countries are sorted
// independently of each other, so that phase runs in parallel.
func (b *Builder) Finalize(ctx context.Context) (*World, error) {
	if b.finalized {
		return nil, apperrors.ErrBuilderFinalized
	}
	b.finalized = true
	start := time.Now()

	streetNames := interner.New()
	housenumbers := interner.New()

	// country → city → zip → street ref → housenumber set
	acc := make(map[string]map[string]map[string]map[interner.Ref]hnSet)
	for _, rec := range b.records {
		var hn Housenumber
		if inline, ok := inlineHousenumber(rec.Housenumber); ok {
			hn = inline
		} else {
			hn = Housenumber(housenumbers.Intern(rec.Housenumber))
		}
		street := streetNames.Intern(rec.Street)

		cities := acc[rec.Country]
		if cities == nil {
			cities = make(map[string]map[string]map[interner.Ref]hnSet)
			acc[rec.Country] = cities
		}
		zips := cities[rec.City]
		if zips == nil {
			zips = make(map[string]map[interner.Ref]hnSet)
			cities[rec.City] = zips
		}
		streets := zips[rec.Postcode]
		if streets == nil {
			streets = make(map[interner.Ref]hnSet)
			zips[rec.Postcode] = streets
		}
		nums := streets[street]
		if nums == nil {
			nums = make(hnSet)
			streets[street] = nums
		}
		nums[hn] = struct{}{}
	}
	b.records = nil

	pairs := make([]sortedindex.Pair[*Country], 0, len(acc))
	for code := range acc {
		pairs = append(pairs, sortedindex.Pair[*Country]{Key: code})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for i := range pairs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pairs[i].Value = buildCountry(acc[pairs[i].Key], streetNames, housenumbers)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("finalizing world: %w", err)
	}

	w := &World{
		streetNames:  streetNames,
		housenumbers: housenumbers,
		countries:    sortedindex.FromPairs(pairs, nil),
	}
	b.logger.Info("world finalized",
		"countries", w.countries.Len(),
		"street_names", streetNames.Len(),
		"housenumber_pool", housenumbers.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return w, nil
}

func buildCountry(cities map[string]map[string]map[interner.Ref]hnSet, streetNames, housenumbers *interner.Interner) *Country {
	render := func(h Housenumber) string {
		if h&hnInline != 0 {
			return strconv.Itoa(int(h &^ hnInline))
		}
		return housenumbers.Resolve(interner.Ref(h))
	}

	cityPairs := make([]sortedindex.Pair[*City], 0, len(cities))
	for cityName, zips := range cities {
		zipPairs := make([]sortedindex.Pair[*Zip], 0, len(zips))
		for zipCode, streets := range zips {
			z := &Zip{streets: make([]Street, 0, len(streets))}
			for ref, nums := range streets {
				st := Street{name: ref, nums: make([]Housenumber, 0, len(nums))}
				for hn := range nums {
					st.nums = append(st.nums, hn)
				}
				sort.Slice(st.nums, func(i, j int) bool {
					return render(st.nums[i]) < render(st.nums[j])
				})
				z.streets = append(z.streets, st)
			}
			sort.Slice(z.streets, func(i, j int) bool {
				return streetNames.Resolve(z.streets[i].name) < streetNames.Resolve(z.streets[j].name)
			})
			zipPairs = append(zipPairs, sortedindex.Pair[*Zip]{Key: zipCode, Value: z})
		}
		city := &City{zips: sortedindex.FromPairs(zipPairs, nil)}
		cityPairs = append(cityPairs, sortedindex.Pair[*City]{Key: cityName, Value: city})
	}
	return &Country{cities: sortedindex.FromPairs(cityPairs, nil)}
}
