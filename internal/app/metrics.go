package app

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks store activity.
type Metrics struct {
	// Opens
	openCount   atomic.Uint64
	openTotalNs atomic.Int64
	openFailed  atomic.Uint64

	// Reloads triggered by file changes
	reloadCount   atomic.Uint64
	reloadTotalNs atomic.Int64
	reloadFailed  atomic.Uint64

	// Queries
	queryCount   atomic.Uint64
	queryTotalNs atomic.Int64
	queryMinNs   atomic.Int64
	queryMaxNs   atomic.Int64
	queryMissed  atomic.Uint64

	// Watch events received
	eventCount atomic.Uint64

	mu        sync.RWMutex
	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
	}
	// Initialize min to max int64 so the first query will be smaller
	m.queryMinNs.Store(1<<63 - 1)
	return m
}

// RecordOpen records an open attempt.
func (m *Metrics) RecordOpen(duration time.Duration, err error) {
	if err != nil {
		m.openFailed.Add(1)
		return
	}
	m.openCount.Add(1)
	m.openTotalNs.Add(duration.Nanoseconds())
}

// RecordReload records a reload attempt.
func (m *Metrics) RecordReload(duration time.Duration, err error) {
	if err != nil {
		m.reloadFailed.Add(1)
		return
	}
	m.reloadCount.Add(1)
	m.reloadTotalNs.Add(duration.Nanoseconds())
}

// RecordQuery records query timing. found is false when the query
// addressed nothing in the file.
func (m *Metrics) RecordQuery(duration time.Duration, found bool) {
	ns := duration.Nanoseconds()

	m.queryCount.Add(1)
	m.queryTotalNs.Add(ns)
	if !found {
		m.queryMissed.Add(1)
	}

	for {
		cur := m.queryMinNs.Load()
		if ns >= cur || m.queryMinNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := m.queryMaxNs.Load()
		if ns <= cur || m.queryMaxNs.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// RecordEvent records a watch event.
func (m *Metrics) RecordEvent() {
	m.eventCount.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	openCount := m.openCount.Load()
	reloadCount := m.reloadCount.Load()
	queryCount := m.queryCount.Load()

	minQueryNs := m.queryMinNs.Load()
	if minQueryNs == 1<<63-1 {
		minQueryNs = 0
	}

	m.mu.RLock()
	start := m.startTime
	m.mu.RUnlock()

	return MetricsSnapshot{
		Uptime:       time.Since(start),
		OpenCount:    openCount,
		AvgOpenNs:    average(m.openTotalNs.Load(), openCount),
		OpenFailed:   m.openFailed.Load(),
		ReloadCount:  reloadCount,
		AvgReloadNs:  average(m.reloadTotalNs.Load(), reloadCount),
		ReloadFailed: m.reloadFailed.Load(),
		QueryCount:   queryCount,
		AvgQueryNs:   average(m.queryTotalNs.Load(), queryCount),
		MinQueryNs:   minQueryNs,
		MaxQueryNs:   m.queryMaxNs.Load(),
		QueryMissed:  m.queryMissed.Load(),
		EventCount:   m.eventCount.Load(),
	}
}

func average(total int64, count uint64) int64 {
	if count == 0 {
		return 0
	}
	return total / int64(count)
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.openCount.Store(0)
	m.openTotalNs.Store(0)
	m.openFailed.Store(0)
	m.reloadCount.Store(0)
	m.reloadTotalNs.Store(0)
	m.reloadFailed.Store(0)
	m.queryCount.Store(0)
	m.queryTotalNs.Store(0)
	m.queryMinNs.Store(1<<63 - 1)
	m.queryMaxNs.Store(0)
	m.queryMissed.Store(0)
	m.eventCount.Store(0)

	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime       time.Duration `json:"uptime"`
	OpenCount    uint64        `json:"openCount"`
	AvgOpenNs    int64         `json:"avgOpenNs"`
	OpenFailed   uint64        `json:"openFailed"`
	ReloadCount  uint64        `json:"reloadCount"`
	AvgReloadNs  int64         `json:"avgReloadNs"`
	ReloadFailed uint64        `json:"reloadFailed"`
	QueryCount   uint64        `json:"queryCount"`
	AvgQueryNs   int64         `json:"avgQueryNs"`
	MinQueryNs   int64         `json:"minQueryNs"`
	MaxQueryNs   int64         `json:"maxQueryNs"`
	QueryMissed  uint64        `json:"queryMissed"`
	EventCount   uint64        `json:"eventCount"`
}

// HitRate returns the percentage of queries that found their target.
func (s MetricsSnapshot) HitRate() float64 {
	if s.QueryCount == 0 {
		return 0
	}
	return float64(s.QueryCount-s.QueryMissed) / float64(s.QueryCount) * 100
}

// QueriesPerSecond returns the average query rate since start.
func (s MetricsSnapshot) QueriesPerSecond() float64 {
	if s.Uptime <= 0 {
		return 0
	}
	return float64(s.QueryCount) / s.Uptime.Seconds()
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ElapsedMs returns the elapsed time in milliseconds.
func (t *Timer) ElapsedMs() float64 {
	return float64(t.Elapsed().Nanoseconds()) / 1e6
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}

// Metrics returns the application's metrics instance.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}
