// Package query exposes the four read-only suggestion operations over an
// immutable world. Ancestor keys are matched exactly; only the final level is
// a prefix match. A missing ancestor is ErrNotFound, while a prefix that
// matches nothing is an empty (non-error) result.
package query

import (
	"fmt"

	"github.com/addrindex/addrindex/internal/world"
	apperrors "github.com/addrindex/addrindex/pkg/errors"
)

// Engine answers suggestion queries against one World. It holds no state of
// its own and is safe for unbounded concurrent use; no operation blocks,
// sleeps, or performs I/O.
type Engine struct {
	w *world.World
}

func New(w *world.World) *Engine {
	return &Engine{w: w}
}

// World returns the underlying world, for stats and health reporting.
func (e *Engine) World() *world.World {
	return e.w
}

// Cities returns up to max city names in the given country starting with
// prefix, ascending. max <= 0 means no cap.
func (e *Engine) Cities(countryCode, prefix string, max int) ([]string, error) {
	c, ok := e.w.Country(countryCode)
	if !ok {
		return nil, fmt.Errorf("country %q: %w", countryCode, apperrors.ErrNotFound)
	}
	return c.CitiesWithPrefix(prefix, max), nil
}

// Zips returns up to max postcodes in the given country and city starting
// with prefix, ascending.
func (e *Engine) Zips(countryCode, cityName, prefix string, max int) ([]string, error) {
	ci, err := e.city(countryCode, cityName)
	if err != nil {
		return nil, err
	}
	return ci.ZipsWithPrefix(prefix, max), nil
}

// Streets returns up to max street names in the given country, city, and zip
// starting with prefix, ascending.
func (e *Engine) Streets(countryCode, cityName, zip, prefix string, max int) ([]string, error) {
	z, err := e.zip(countryCode, cityName, zip)
	if err != nil {
		return nil, err
	}
	return e.w.StreetsWithPrefix(z, prefix, max), nil
}

// Housenumbers returns up to max housenumbers on the given street starting
// with prefix, ascending.
func (e *Engine) Housenumbers(countryCode, cityName, zip, street, prefix string, max int) ([]string, error) {
	z, err := e.zip(countryCode, cityName, zip)
	if err != nil {
		return nil, err
	}
	st, ok := e.w.Street(z, street)
	if !ok {
		return nil, fmt.Errorf("street %q: %w", street, apperrors.ErrNotFound)
	}
	return e.w.HousenumbersWithPrefix(st, prefix, max), nil
}

func (e *Engine) city(countryCode, cityName string) (*world.City, error) {
	c, ok := e.w.Country(countryCode)
	if !ok {
		return nil, fmt.Errorf("country %q: %w", countryCode, apperrors.ErrNotFound)
	}
	ci, ok := c.City(cityName)
	if !ok {
		return nil, fmt.Errorf("city %q: %w", cityName, apperrors.ErrNotFound)
	}
	return ci, nil
}

func (e *Engine) zip(countryCode, cityName, zip string) (*world.Zip, error) {
	ci, err := e.city(countryCode, cityName)
	if err != nil {
		return nil, err
	}
	z, ok := ci.Zip(zip)
	if !ok {
		return nil, fmt.Errorf("zip %q: %w", zip, apperrors.ErrNotFound)
	}
	return z, nil
}
