package models

import "time"

// RunRecord is the persisted outcome of one scenario of a run.
type RunRecord struct {
	RunID         string
	Scenario      string
	Topology      Descriptor
	Resource      string
	Path          string
	InstanceID    string
	Phase         Phase
	Passed        bool
	StatusCode    int
	Error         string
	TeardownError string
	Duration      time.Duration
	StartedAt     time.Time
}
