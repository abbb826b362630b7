package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// latencyBounds are the upper bounds of the histogram buckets; the last
// bucket collects everything slower.
var latencyBounds = [...]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

// Monitor counts finished responses per status code.
// Writers are the event loop; readers may be any goroutine.
type Monitor struct {
	enabled  atomic.Bool
	statuses sync.Map // int -> *StatusMetrics
	global   struct {
		responses atomic.Uint64
		bytes     atomic.Uint64
		failures  atomic.Uint64
	}
}

// StatusMetrics stores per-status metrics
type StatusMetrics struct {
	Code           int
	Count          atomic.Uint64
	Bytes          atomic.Uint64
	TotalDuration  atomic.Uint64
	MinDuration    atomic.Uint64
	MaxDuration    atomic.Uint64
	latencyBuckets [len(latencyBounds) + 1]atomic.Uint64
}

// StatusSnapshot is a copy of StatusMetrics safe to marshal
type StatusSnapshot struct {
	Code        int           `json:"code"`
	Count       uint64        `json:"count"`
	Bytes       uint64        `json:"bytes"`
	AvgDuration time.Duration `json:"avg_duration_ns"`
	MinDuration time.Duration `json:"min_duration_ns"`
	MaxDuration time.Duration `json:"max_duration_ns"`
	Buckets     []uint64      `json:"latency_buckets"`
}

// Snapshot is a point-in-time view of the monitor
type Snapshot struct {
	Responses uint64           `json:"responses"`
	Bytes     uint64           `json:"bytes"`
	Failures  uint64           `json:"failures"`
	Statuses  []StatusSnapshot `json:"statuses"`
}

// NewMonitor creates a monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.enabled.Store(true)
	return m
}

// SetEnabled turns recording on or off
func (m *Monitor) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// RecordResponse records a response that was sent completely
func (m *Monitor) RecordResponse(code int, bytes int64, duration time.Duration) {
	if !m.enabled.Load() {
		return
	}

	val, _ := m.statuses.LoadOrStore(code, &StatusMetrics{Code: code})
	metrics := val.(*StatusMetrics)

	d := uint64(duration.Nanoseconds())
	metrics.Count.Add(1)
	metrics.Bytes.Add(uint64(bytes))
	metrics.TotalDuration.Add(d)
	updateMinMax(metrics, d)
	metrics.latencyBuckets[bucketFor(duration)].Add(1)

	m.global.responses.Add(1)
	m.global.bytes.Add(uint64(bytes))
}

// RecordFailure records a connection dropped by a fatal I/O or integrity error
func (m *Monitor) RecordFailure() {
	if !m.enabled.Load() {
		return
	}
	m.global.failures.Add(1)
}

func updateMinMax(m *StatusMetrics, d uint64) {
	for {
		min := m.MinDuration.Load()
		if min != 0 && d >= min {
			break
		}
		if m.MinDuration.CompareAndSwap(min, d) {
			break
		}
	}
	for {
		max := m.MaxDuration.Load()
		if d <= max {
			break
		}
		if m.MaxDuration.CompareAndSwap(max, d) {
			break
		}
	}
}

func bucketFor(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d < bound {
			return i
		}
	}
	return len(latencyBounds)
}

// Snapshot returns the current counters, statuses sorted by code
func (m *Monitor) Snapshot() Snapshot {
	snap := Snapshot{
		Responses: m.global.responses.Load(),
		Bytes:     m.global.bytes.Load(),
		Failures:  m.global.failures.Load(),
	}

	m.statuses.Range(func(_, value any) bool {
		sm := value.(*StatusMetrics)
		s := StatusSnapshot{
			Code:        sm.Code,
			Count:       sm.Count.Load(),
			Bytes:       sm.Bytes.Load(),
			MinDuration: time.Duration(sm.MinDuration.Load()),
			MaxDuration: time.Duration(sm.MaxDuration.Load()),
			Buckets:     make([]uint64, len(sm.latencyBuckets)),
		}
		if s.Count > 0 {
			s.AvgDuration = time.Duration(sm.TotalDuration.Load() / s.Count)
		}
		for i := range sm.latencyBuckets {
			s.Buckets[i] = sm.latencyBuckets[i].Load()
		}
		snap.Statuses = append(snap.Statuses, s)
		return true
	})

	sort.Slice(snap.Statuses, func(i, j int) bool {
		return snap.Statuses[i].Code < snap.Statuses[j].Code
	})
	return snap
}
