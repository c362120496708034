// Package perf keeps a bounded history of operation metrics and derives
// rolling statistics, trend windows and a degradation signal from it.
package perf

import (
	"sort"
	"sync"
	"time"
)

// historyLimit bounds the metric buffer. Older entries fall off FIFO; the
// incremental per-operation aggregates keep counting beyond the window.
const historyLimit = 1000

// degradationSamples and degradationFactor drive the IsDegrading signal:
// the mean of the most recent samples against the all-time mean.
const (
	degradationSamples = 20
	degradationFactor  = 1.5
)

// Metric is one recorded operation.
type Metric struct {
	Operation string
	Duration  time.Duration
	Success   bool
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// OperationStats is the incremental aggregate for one operation name.
type OperationStats struct {
	Count         int64
	Successes     int64
	Failures      int64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	TotalDuration time.Duration
}

// MeanDuration returns the average duration across all recorded calls.
func (s OperationStats) MeanDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// SuccessRate returns the fraction of successful calls in [0,1].
func (s OperationStats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Count)
}

// OverallStats summarizes the retained history window.
type OverallStats struct {
	Count          int
	SuccessRate    float64
	MeanDuration   time.Duration
	MedianDuration time.Duration
	MinDuration    time.Duration
	MaxDuration    time.Duration
}

// TrendStats summarizes the metrics inside one look-back window.
type TrendStats struct {
	Window       time.Duration
	Count        int
	SuccessRate  float64
	MeanDuration time.Duration
}

// Monitor records metrics and serves statistics. Safe for concurrent use.
type Monitor struct {
	mu      sync.RWMutex
	history []Metric // FIFO, capped at historyLimit
	ops     map[string]*OperationStats

	// All-time aggregates survive history eviction.
	allCount int64
	allTotal time.Duration

	now func() time.Time
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		ops: make(map[string]*OperationStats),
		now: time.Now,
	}
}

// Record appends one metric, evicting the oldest entry when the history is
// full, and folds it into the incremental aggregates.
func (m *Monitor) Record(operation string, duration time.Duration, success bool, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metric := Metric{
		Operation: operation,
		Duration:  duration,
		Success:   success,
		Timestamp: m.now(),
		Metadata:  metadata,
	}

	if len(m.history) >= historyLimit {
		m.history = m.history[1:]
	}
	m.history = append(m.history, metric)

	stats, ok := m.ops[operation]
	if !ok {
		stats = &OperationStats{MinDuration: duration, MaxDuration: duration}
		m.ops[operation] = stats
	}
	stats.Count++
	if success {
		stats.Successes++
	} else {
		stats.Failures++
	}
	if duration < stats.MinDuration {
		stats.MinDuration = duration
	}
	if duration > stats.MaxDuration {
		stats.MaxDuration = duration
	}
	stats.TotalDuration += duration

	m.allCount++
	m.allTotal += duration
}

// Reset drops all recorded metrics and aggregates.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.ops = make(map[string]*OperationStats)
	m.allCount = 0
	m.allTotal = 0
}

// Overall returns statistics over the retained history.
func (m *Monitor) Overall() OverallStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.history)
	if n == 0 {
		return OverallStats{}
	}

	durations := make([]time.Duration, n)
	var total time.Duration
	successes := 0
	minDur, maxDur := m.history[0].Duration, m.history[0].Duration
	for i, metric := range m.history {
		durations[i] = metric.Duration
		total += metric.Duration
		if metric.Success {
			successes++
		}
		if metric.Duration < minDur {
			minDur = metric.Duration
		}
		if metric.Duration > maxDur {
			maxDur = metric.Duration
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	median := durations[n/2]
	if n%2 == 0 {
		median = (durations[n/2-1] + durations[n/2]) / 2
	}

	return OverallStats{
		Count:          n,
		SuccessRate:    float64(successes) / float64(n),
		MeanDuration:   total / time.Duration(n),
		MedianDuration: median,
		MinDuration:    minDur,
		MaxDuration:    maxDur,
	}
}

// Operation returns the incremental aggregate for one operation name.
func (m *Monitor) Operation(name string) (OperationStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats, ok := m.ops[name]
	if !ok {
		return OperationStats{}, false
	}
	return *stats, true
}

// Operations returns a snapshot of every per-operation aggregate.
func (m *Monitor) Operations() map[string]OperationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]OperationStats, len(m.ops))
	for name, stats := range m.ops {
		out[name] = *stats
	}
	return out
}

// Trend summarizes the retained metrics newer than the given look-back.
func (m *Monitor) Trend(window time.Duration) TrendStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-window)
	count := 0
	successes := 0
	var total time.Duration
	for i := len(m.history) - 1; i >= 0; i-- {
		metric := m.history[i]
		if metric.Timestamp.Before(cutoff) {
			break
		}
		count++
		if metric.Success {
			successes++
		}
		total += metric.Duration
	}

	trend := TrendStats{Window: window, Count: count}
	if count > 0 {
		trend.SuccessRate = float64(successes) / float64(count)
		trend.MeanDuration = total / time.Duration(count)
	}
	return trend
}

// IsDegrading reports whether the recent mean duration has drifted well
// above the all-time mean.
func (m *Monitor) IsDegrading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.allCount == 0 || len(m.history) < degradationSamples {
		return false
	}

	var recent time.Duration
	for _, metric := range m.history[len(m.history)-degradationSamples:] {
		recent += metric.Duration
	}
	recentMean := recent / degradationSamples
	allMean := m.allTotal / time.Duration(m.allCount)
	if allMean == 0 {
		return false
	}
	return float64(recentMean) > degradationFactor*float64(allMean)
}

// CacheHitRate derives the cache hit fraction from metric metadata
// ("cache_hit" entries), not from separate counters.
func (m *Monitor) CacheHitRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total, hits := 0, 0
	for _, metric := range m.history {
		v, ok := metric.Metadata["cache_hit"]
		if !ok {
			continue
		}
		total++
		if hit, ok := v.(bool); ok && hit {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// MemoryUsage summarizes the "memory_estimate" metadata entries (bytes)
// across the retained history.
func (m *Monitor) MemoryUsage() (min, max, mean int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	count := int64(0)
	for _, metric := range m.history {
		v, ok := metric.Metadata["memory_estimate"]
		if !ok {
			continue
		}
		bytes, ok := v.(int64)
		if !ok {
			continue
		}
		if count == 0 || bytes < min {
			min = bytes
		}
		if bytes > max {
			max = bytes
		}
		total += bytes
		count++
	}
	if count > 0 {
		mean = total / count
	}
	return min, max, mean
}

// Analytics is the introspection bundle served to callers.
type Analytics struct {
	Overall     OverallStats
	Operations  map[string]OperationStats
	HourTrend   TrendStats
	DayTrend    TrendStats
	Degrading   bool
	CacheHit    float64
	MemoryMin   int64
	MemoryMax   int64
	MemoryMean  int64
	SampleCount int
}

// Snapshot assembles the full analytics bundle.
func (m *Monitor) Snapshot() Analytics {
	memMin, memMax, memMean := m.MemoryUsage()
	overall := m.Overall()
	return Analytics{
		Overall:     overall,
		Operations:  m.Operations(),
		HourTrend:   m.Trend(time.Hour),
		DayTrend:    m.Trend(24 * time.Hour),
		Degrading:   m.IsDegrading(),
		CacheHit:    m.CacheHitRate(),
		MemoryMin:   memMin,
		MemoryMax:   memMax,
		MemoryMean:  memMean,
		SampleCount: overall.Count,
	}
}
