package models

import "time"

// RuntimeMetrics is a lightweight snapshot of process counters.
type RuntimeMetrics struct {
	CacheHitRatio             float64   `json:"cacheHitRatio"`
	CacheHits                 uint64    `json:"cacheHits"`
	CacheMisses               uint64    `json:"cacheMisses"`
	RequestsTotal             uint64    `json:"requestsTotal"`
	AverageRequestDurationMs  float64   `json:"averageRequestDurationMs"`
	UpstreamCalls             uint64    `json:"upstreamCalls"`
	AverageUpstreamDurationMs float64   `json:"averageUpstreamDurationMs"`
	Syncs                     uint64    `json:"syncs"`
	Rollbacks                 uint64    `json:"rollbacks"`
	Goroutines                int       `json:"goroutines"`
	GeneratedAt               time.Time `json:"generatedAt"`
}
