package perf

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorRecord(t *testing.T) {
	m := NewMonitor()

	m.Record("analyze_crop", 10*time.Millisecond, true, nil)
	m.Record("analyze_crop", 30*time.Millisecond, false, nil)
	m.Record("cache_get", 1*time.Millisecond, true, nil)

	t.Run("per operation aggregates", func(t *testing.T) {
		stats, ok := m.Operation("analyze_crop")
		require.True(t, ok)
		assert.EqualValues(t, 2, stats.Count)
		assert.EqualValues(t, 1, stats.Successes)
		assert.EqualValues(t, 1, stats.Failures)
		assert.Equal(t, 10*time.Millisecond, stats.MinDuration)
		assert.Equal(t, 30*time.Millisecond, stats.MaxDuration)
		assert.Equal(t, 20*time.Millisecond, stats.MeanDuration())
		assert.Equal(t, 0.5, stats.SuccessRate())
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, ok := m.Operation("resize")
		assert.False(t, ok)
	})

	t.Run("overall window", func(t *testing.T) {
		overall := m.Overall()
		assert.Equal(t, 3, overall.Count)
		assert.InDelta(t, 2.0/3.0, overall.SuccessRate, 1e-9)
		assert.Equal(t, 1*time.Millisecond, overall.MinDuration)
		assert.Equal(t, 30*time.Millisecond, overall.MaxDuration)
		assert.Equal(t, 10*time.Millisecond, overall.MedianDuration)
	})
}

func TestMonitorReset(t *testing.T) {
	m := NewMonitor()
	m.Record("analyze_crop", time.Millisecond, true, nil)

	m.Reset()

	assert.Equal(t, 0, m.Overall().Count)
	_, ok := m.Operation("analyze_crop")
	assert.False(t, ok)
}

func TestMonitorHistoryEviction(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < historyLimit+50; i++ {
		m.Record("op", time.Millisecond, true, nil)
	}

	assert.Equal(t, historyLimit, m.Overall().Count)

	// The incremental aggregate keeps counting past the window.
	stats, ok := m.Operation("op")
	require.True(t, ok)
	assert.EqualValues(t, historyLimit+50, stats.Count)
}

func TestMonitorTrend(t *testing.T) {
	m := NewMonitor()
	base := time.Now()

	// Two old samples, three recent ones.
	m.now = func() time.Time { return base.Add(-2 * time.Hour) }
	m.Record("op", 50*time.Millisecond, false, nil)
	m.Record("op", 50*time.Millisecond, true, nil)

	m.now = func() time.Time { return base.Add(-time.Minute) }
	for i := 0; i < 3; i++ {
		m.Record("op", 10*time.Millisecond, true, nil)
	}

	m.now = func() time.Time { return base }
	trend := m.Trend(time.Hour)

	assert.Equal(t, 3, trend.Count)
	assert.Equal(t, 1.0, trend.SuccessRate)
	assert.Equal(t, 10*time.Millisecond, trend.MeanDuration)
}

func TestMonitorIsDegrading(t *testing.T) {
	t.Run("too few samples", func(t *testing.T) {
		m := NewMonitor()
		for i := 0; i < degradationSamples-1; i++ {
			m.Record("op", time.Millisecond, true, nil)
		}
		assert.False(t, m.IsDegrading())
	})

	t.Run("steady durations", func(t *testing.T) {
		m := NewMonitor()
		for i := 0; i < 100; i++ {
			m.Record("op", 10*time.Millisecond, true, nil)
		}
		assert.False(t, m.IsDegrading())
	})

	t.Run("recent slowdown", func(t *testing.T) {
		m := NewMonitor()
		for i := 0; i < 100; i++ {
			m.Record("op", 10*time.Millisecond, true, nil)
		}
		for i := 0; i < degradationSamples; i++ {
			m.Record("op", 100*time.Millisecond, true, nil)
		}
		assert.True(t, m.IsDegrading())
	})
}

func TestMonitorCacheHitRate(t *testing.T) {
	m := NewMonitor()

	m.Record("op", time.Millisecond, true, map[string]interface{}{"cache_hit": true})
	m.Record("op", time.Millisecond, true, map[string]interface{}{"cache_hit": false})
	m.Record("op", time.Millisecond, true, map[string]interface{}{"cache_hit": true})
	m.Record("op", time.Millisecond, true, nil) // no metadata: excluded

	assert.InDelta(t, 2.0/3.0, m.CacheHitRate(), 1e-9)
}

func TestMonitorMemoryUsage(t *testing.T) {
	m := NewMonitor()

	for _, bytes := range []int64{1000, 3000, 2000} {
		m.Record("op", time.Millisecond, true, map[string]interface{}{"memory_estimate": bytes})
	}
	m.Record("op", time.Millisecond, true, nil)

	min, max, mean := m.MemoryUsage()
	assert.EqualValues(t, 1000, min)
	assert.EqualValues(t, 3000, max)
	assert.EqualValues(t, 2000, mean)
}

func TestMonitorSnapshot(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < 5; i++ {
		m.Record(fmt.Sprintf("op-%d", i%2), time.Duration(i+1)*time.Millisecond, true,
			map[string]interface{}{"cache_hit": i%2 == 0, "memory_estimate": int64(1000 * (i + 1))})
	}

	snap := m.Snapshot()
	assert.Equal(t, 5, snap.SampleCount)
	assert.Equal(t, 1.0, snap.Overall.SuccessRate)
	assert.Len(t, snap.Operations, 2)
	assert.Equal(t, 5, snap.HourTrend.Count)
	assert.InDelta(t, 0.6, snap.CacheHit, 1e-9)
	assert.EqualValues(t, 3000, snap.MemoryMean)
	assert.False(t, snap.Degrading)
}
