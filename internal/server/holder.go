// Package server implements the HTTP suggestion API: parameter parsing, the
// swappable world holder, and the Redis-backed suggestion cache.
package server

import (
	"log/slog"
	"sync/atomic"

	"github.com/addrindex/addrindex/internal/query"
	"github.com/addrindex/addrindex/internal/world"
)

// Holder owns the process-wide current world behind an atomic pointer.
// In-flight queries against the old world finish undisturbed while new
// queries observe the swapped-in one; no query ever sees a partial world.
type Holder struct {
	engine atomic.Pointer[query.Engine]
	logger *slog.Logger
}

func NewHolder(e *query.Engine) *Holder {
	h := &Holder{logger: slog.Default().With("component", "world-holder")}
	h.engine.Store(e)
	return h
}

// Engine returns the currently served query engine.
func (h *Holder) Engine() *query.Engine {
	return h.engine.Load()
}

// ReloadFrom decodes the world file at path and swaps it in.
func (h *Holder) ReloadFrom(path string) (world.Stats, error) {
	w, err := world.ReadFile(path)
	if err != nil {
		return world.Stats{}, err
	}
	h.engine.Store(query.New(w))
	stats := w.Stats()
	h.logger.Info("world swapped",
		"file", path,
		"countries", stats.Countries,
		"street_names", stats.StreetNames,
	)
	return stats, nil
}
