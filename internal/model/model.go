package model

import "time"

// Sample is a single health observation for one backend, recorded by an external health checker.
type Sample struct {
	Timestamp time.Time
	BackendID string
	LatencyMs float64
	Failed    bool
}
