// Package device classifies the host into coarse capability tiers and maps
// battery conditions onto analysis degradation strategies. Both signals are
// deliberately conservative heuristics behind small interfaces so platform
// builds can substitute real telemetry.
package device

import (
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/dlevesque1980/dailywallpaper-sub000/util/log"
)

// Tier is a coarse classification of expected analysis throughput.
type Tier int

// Tiers, ordered so the conservative min() of two tiers is meaningful.
const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// Capability describes the host's analysis budget: the conservative overall
// tier plus the execution parameters derived from it.
type Capability struct {
	Platform         string
	MemoryTier       Tier
	ProcessingTier   Tier
	OverallTier      Tier
	BatteryOptimized bool

	// Derived execution parameters.
	MaxConcurrentStrategies int
	MaxAnalysisDimension    int
	IsolateThresholdPixels  int
	TimeoutMultiplier       float64
}

// tierParams maps each overall tier to its fixed execution parameters.
var tierParams = map[Tier]struct {
	concurrency  int
	analysisDim  int
	isolatePx    int
	timeoutScale float64
}{
	TierHigh:   {4, 2048, 8_000_000, 1.0},
	TierMedium: {2, 1024, 4_000_000, 1.5},
	TierLow:    {1, 512, 2_000_000, 2.0},
}

// ScreenSizer reports the primary display dimensions, the proxy used for
// memory tiering.
type ScreenSizer interface {
	ScreenDimensions() (width, height int, err error)
}

// Detector computes the host Capability once and memoizes it process-wide
// until Invalidate is called.
type Detector struct {
	mu     sync.Mutex
	cached *Capability

	screen    ScreenSizer
	benchmark func() time.Duration
}

// NewDetector creates a detector using the platform screen probe and the
// built-in micro-benchmark.
func NewDetector() *Detector {
	return &Detector{
		screen:    platformScreen{},
		benchmark: processingBenchmark,
	}
}

// NewDetectorWith creates a detector with injected probes, for tests and
// platform-specific builds.
func NewDetectorWith(screen ScreenSizer, benchmark func() time.Duration) *Detector {
	return &Detector{screen: screen, benchmark: benchmark}
}

// Capability returns the memoized host capability, computing it on first use.
func (d *Detector) Capability() Capability {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached == nil {
		detected := d.detect()
		d.cached = &detected
		log.Printf("Device capability: platform=%s memory=%s processing=%s overall=%s",
			detected.Platform, detected.MemoryTier, detected.ProcessingTier, detected.OverallTier)
	}
	return *d.cached
}

// Invalidate drops the memoized capability so the next call re-detects.
func (d *Detector) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
}

func (d *Detector) detect() Capability {
	platform := runtime.GOOS

	memTier := d.memoryTier()
	procTier := d.processingTier()

	overall := memTier
	if procTier < overall {
		overall = procTier
	}

	params := tierParams[overall]
	return Capability{
		Platform:                platform,
		MemoryTier:              memTier,
		ProcessingTier:          procTier,
		OverallTier:             overall,
		BatteryOptimized:        IsMobilePlatform(platform),
		MaxConcurrentStrategies: params.concurrency,
		MaxAnalysisDimension:    params.analysisDim,
		IsolateThresholdPixels:  params.isolatePx,
		TimeoutMultiplier:       params.timeoutScale,
	}
}

// memoryTier classifies memory headroom using the primary display resolution
// as a proxy: bigger screens ship on machines with more memory.
func (d *Detector) memoryTier() Tier {
	w, h, err := d.screen.ScreenDimensions()
	if err != nil || w <= 0 || h <= 0 {
		log.Debugf("Device: screen probe failed (%v), assuming low memory tier", err)
		return TierLow
	}

	megapixels := float64(w) * float64(h) / 1e6
	switch {
	case megapixels > 2.0:
		return TierHigh
	case megapixels > 1.0:
		return TierMedium
	default:
		return TierLow
	}
}

// processingTier times a fixed micro-benchmark against coarse thresholds.
func (d *Detector) processingTier() Tier {
	elapsed := d.benchmark()
	switch {
	case elapsed < 50*time.Millisecond:
		return TierHigh
	case elapsed < 150*time.Millisecond:
		return TierMedium
	default:
		return TierLow
	}
}

// processingBenchmark runs a bounded trigonometric loop and returns the
// elapsed wall time. The workload is fixed so results are comparable across
// runs on the same machine.
func processingBenchmark() time.Duration {
	start := time.Now()
	acc := 0.0
	for i := 0; i < 2_000_000; i++ {
		acc += math.Sin(float64(i)) * math.Cos(float64(i))
	}
	_ = acc
	return time.Since(start)
}

// IsMobilePlatform reports whether the platform tag names a battery-first
// device class.
func IsMobilePlatform(platform string) bool {
	return platform == "android" || platform == "ios"
}
