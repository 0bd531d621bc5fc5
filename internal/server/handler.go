package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/addrindex/addrindex/internal/analytics"
	"github.com/addrindex/addrindex/internal/query"
	apperrors "github.com/addrindex/addrindex/pkg/errors"
	"github.com/addrindex/addrindex/pkg/logger"
	"github.com/addrindex/addrindex/pkg/metrics"
	"github.com/addrindex/addrindex/pkg/middleware"
)

// maxItemsHeader overrides the limit query parameter when present. It is the
// contract the upstream form-filling clients already speak.
const maxItemsHeader = "X-Max-Items"

// Handler serves the four suggestion endpoints plus the admin surface.
type Handler struct {
	holder       *Holder
	cache        *SuggestCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	worldFile    string
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a Handler. cache, collector, and m may be nil, which disables
// caching, analytics, and metric recording respectively.
func New(holder *Holder, cache *SuggestCache, collector *analytics.Collector, m *metrics.Metrics, worldFile string, defaultLimit, maxResults int) *Handler {
	return &Handler{
		holder:       holder,
		cache:        cache,
		collector:    collector,
		metrics:      m,
		worldFile:    worldFile,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "suggest-handler"),
	}
}

type lookupFn func(e *query.Engine, path []string, prefix string, limit int) ([]string, error)

func (h *Handler) Cities(w http.ResponseWriter, r *http.Request) {
	h.suggest(w, r, "cities", []string{"country_code"},
		func(e *query.Engine, p []string, prefix string, limit int) ([]string, error) {
			return e.Cities(p[0], prefix, limit)
		})
}

func (h *Handler) Zips(w http.ResponseWriter, r *http.Request) {
	h.suggest(w, r, "zips", []string{"country_code", "city_name"},
		func(e *query.Engine, p []string, prefix string, limit int) ([]string, error) {
			return e.Zips(p[0], p[1], prefix, limit)
		})
}

func (h *Handler) Streets(w http.ResponseWriter, r *http.Request) {
	h.suggest(w, r, "streets", []string{"country_code", "city_name", "zip"},
		func(e *query.Engine, p []string, prefix string, limit int) ([]string, error) {
			return e.Streets(p[0], p[1], p[2], prefix, limit)
		})
}

func (h *Handler) Housenumbers(w http.ResponseWriter, r *http.Request) {
	h.suggest(w, r, "housenumbers", []string{"country_code", "city_name", "zip", "street"},
		func(e *query.Engine, p []string, prefix string, limit int) ([]string, error) {
			return e.Housenumbers(p[0], p[1], p[2], p[3], prefix, limit)
		})
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request, level string, params []string, lookup lookupFn) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	path := make([]string, 0, len(params))
	for _, name := range params {
		v := r.URL.Query().Get(name)
		if v == "" {
			h.countQuery(level, "error")
			h.writeError(w, http.StatusBadRequest, "query parameter '"+name+"' is required")
			return
		}
		path = append(path, v)
	}
	prefix := r.URL.Query().Get("prefix")

	limit, err := h.parseLimit(r)
	if err != nil {
		h.countQuery(level, "error")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine := h.holder.Engine()
	var results []string
	cacheHit := false
	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, level, path, prefix, limit, func() ([]string, error) {
			return lookup(engine, path, prefix, limit)
		})
	} else {
		results, err = lookup(engine, path, prefix, limit)
	}

	latency := time.Since(start)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status == http.StatusNotFound {
			h.countQuery(level, "not_found")
			h.track(ctx, analytics.EventNotFound, level, path, prefix, 0, latency, cacheHit)
			h.writeError(w, status, err.Error())
			return
		}
		h.countQuery(level, "error")
		log.Error("suggest query failed", "level", level, "error", err)
		h.writeError(w, status, "suggestion lookup failed")
		return
	}

	outcome := "ok"
	if len(results) == 0 {
		outcome = "empty"
	}
	h.countQuery(level, outcome)
	if h.metrics != nil {
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		if h.cache == nil {
			cacheStatus = "disabled"
		}
		h.metrics.SuggestLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		h.metrics.SuggestResultsCount.Observe(float64(len(results)))
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
	}
	h.track(ctx, analytics.EventSuggest, level, path, prefix, len(results), latency, cacheHit)

	log.Debug("suggest completed",
		"level", level,
		"prefix", prefix,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency", latency,
	)
	if results == nil {
		results = []string{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

// parseLimit resolves the result cap: the X-Max-Items header wins when it
// parses, then the limit query parameter, then the configured default. The
// configured maximum always applies.
func (h *Handler) parseLimit(r *http.Request) (int, error) {
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if header := r.Header.Get(maxItemsHeader); header != "" {
		if parsed, err := strconv.Atoi(header); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.maxResults {
		limit = h.maxResults
	}
	return limit, nil
}

// WorldStats reports the size of the currently served world.
func (h *Handler) WorldStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.holder.Engine().World().Stats())
}

// Reload re-reads the world file, swaps the new world in, and flushes the
// suggestion cache.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	stats, err := h.holder.ReloadFrom(h.worldFile)
	if err != nil {
		if h.metrics != nil {
			h.metrics.WorldReloadsTotal.WithLabelValues("error").Inc()
		}
		h.logger.Error("world reload failed", "file", h.worldFile, "error", err)
		h.writeError(w, http.StatusInternalServerError, "world reload failed")
		return
	}
	if h.metrics != nil {
		h.metrics.WorldReloadsTotal.WithLabelValues("ok").Inc()
		h.metrics.WorldCountries.Set(float64(stats.Countries))
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Error("cache invalidation after reload failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// CacheStats reports suggestion cache hit/miss counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":   hits,
		"misses": misses,
		"total":  hits + misses,
	})
}

func (h *Handler) countQuery(level, outcome string) {
	if h.metrics != nil {
		h.metrics.SuggestQueriesTotal.WithLabelValues(level, outcome).Inc()
	}
}

func (h *Handler) track(ctx context.Context, typ analytics.EventType, level string, path []string, prefix string, returned int, latency time.Duration, cacheHit bool) {
	if h.collector == nil {
		return
	}
	country := ""
	if len(path) > 0 {
		country = path[0]
	}
	h.collector.Track(analytics.SuggestEvent{
		Type:      typ,
		Level:     level,
		Country:   country,
		Prefix:    prefix,
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
