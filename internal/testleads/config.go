// Package testleads generates synthetic prospects and drives a running
// service with them to check queueing, scoring and ranking end to end.
package testleads

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	NumLeads int           // Number of leads to generate
	TopN     int           // Number of top leads to fetch and verify
	Workers  int           // Number of concurrent submitters
	Timeout  time.Duration // HTTP request timeout
	// SettleTimeout bounds the wait for the async queue to drain.
	SettleTimeout time.Duration
	// DuplicateEvery resubmits every n-th signal to exercise idempotency; 0 disables it.
	DuplicateEvery int
	UseAI          bool
	Seed           uint64
	OutputFile     string // Optional YAML dump of the generated leads
}

// Stats holds run statistics.
type Stats struct {
	Generated  int           `json:"generated"`
	Submitted  int           `json:"submitted"`
	Accepted   int           `json:"accepted"`
	Duplicates int           `json:"duplicates"`
	Rejected   int           `json:"rejected"`
	Failed     int           `json:"failed"`
	Scored     int           `json:"scored"`
	TopLeads   int           `json:"top_leads"`
	Duration   time.Duration `json:"duration"`
}
