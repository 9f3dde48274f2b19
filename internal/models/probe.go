package models

import "time"

// ProbeResult is the outcome of a single HTTP probe.
type ProbeResult struct {
	StatusCode int
	Body       string
	Elapsed    time.Duration
}
