package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/searchktools/pageserver/core/observability"
	"github.com/searchktools/pageserver/core/pools"
)

// Stats combines slot pool and response counters
type Stats struct {
	Pool      pools.PoolStats        `json:"pool"`
	Responses observability.Snapshot `json:"responses"`
}

// Stats returns a snapshot of the engine counters. Safe from any goroutine.
func (e *Engine) Stats() Stats {
	return Stats{
		Pool:      e.pool.Stats(),
		Responses: e.monitor.Snapshot(),
	}
}

// StatsJSON returns the statistics as indented JSON
func (e *Engine) StatsJSON() string {
	data, _ := json.MarshalIndent(e.Stats(), "", "  ")
	return string(data)
}

// StatsText returns the statistics as human-readable text
func (e *Engine) StatsText() string {
	stats := e.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, `Connection Slots
================

  Capacity: %d
  Active:   %d
  Accepted: %d
  Released: %d
  Rejected: %d

Responses
=========

  Total:    %d
  Bytes:    %d
  Failures: %d
`,
		stats.Pool.Capacity, stats.Pool.Active,
		stats.Pool.Acquired, stats.Pool.Released, stats.Pool.Rejected,
		stats.Responses.Responses, stats.Responses.Bytes, stats.Responses.Failures,
	)

	for _, s := range stats.Responses.Statuses {
		fmt.Fprintf(&b, "  %d: %d (avg %s, max %s)\n", s.Code, s.Count, s.AvgDuration, s.MaxDuration)
	}
	return b.String()
}
