// Package analytics publishes suggest-query events to Kafka for offline
// analysis of autocompletion usage.
package analytics

import "time"

type EventType string

const (
	EventSuggest  EventType = "suggest"
	EventNotFound EventType = "not_found"
)

// SuggestEvent describes one suggestion query.
type SuggestEvent struct {
	Type      EventType `json:"type"`
	Level     string    `json:"level"`
	Country   string    `json:"country"`
	Prefix    string    `json:"prefix"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
