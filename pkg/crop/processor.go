package crop

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop/cache"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/device"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/perf"
	"github.com/dlevesque1980/dailywallpaper-sub000/util/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DecisionCache is the persistence boundary the supervisor talks to. All
// cache failures are swallowed: the engine proceeds as if on a miss.
type DecisionCache interface {
	Get(key string) (*cache.Entry, error)
	Put(entry *cache.Entry) error
	DeleteByImage(imageURL string) (int64, error)
	InvalidateForSettings(settingsHash string) (int64, error)
	Maintenance(ttl time.Duration, maxEntries int) (expired, evicted int64, err error)
	Stats() (cache.Stats, error)
	Clear() error
}

// Processor orchestrates one crop decision end to end: capability lookup,
// battery adjustment, gating, cache, dispatch, the timeout/memory race,
// write-back and metric recording. All dependencies are injected; there are
// no package-level singletons.
type Processor struct {
	tuning   TuningConfig
	registry *Registry
	selector *Selector

	cache    DecisionCache // may be nil: cache disabled
	monitor  *perf.Monitor
	devices  *device.Detector
	battery  *device.BatteryManager
	pool     *Pool
	poolOnce sync.Once

	// throttle paces analyses while the battery strategy asks for
	// background throttling.
	throttle *rate.Limiter

	// memPressure reports whether the process is under memory pressure.
	// Swappable for tests.
	memPressure func(estimate int64, hardLimit int64) bool

	// decisionHook, when set, observes every completed decision.
	hookMu       sync.RWMutex
	decisionHook func(imageID string, result Result)
}

// NewProcessor wires a supervisor from its collaborators. cacheStore may be
// nil to run without persistence.
func NewProcessor(cacheStore DecisionCache, monitor *perf.Monitor, devices *device.Detector, battery *device.BatteryManager, tuning TuningConfig) *Processor {
	if monitor == nil {
		monitor = perf.NewMonitor()
	}
	if devices == nil {
		devices = device.NewDetector()
	}
	if battery == nil {
		battery = device.NewBatteryManager()
	}
	registry := NewRegistry(tuning)
	return &Processor{
		tuning:      tuning,
		registry:    registry,
		selector:    NewSelector(registry),
		cache:       cacheStore,
		monitor:     monitor,
		devices:     devices,
		battery:     battery,
		pool:        NewPool(),
		throttle:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		memPressure: heapPressure,
	}
}

// SetDecisionHook registers an observer for completed decisions. Used by
// the introspection server to broadcast live results.
func (p *Processor) SetDecisionHook(hook func(imageID string, result Result)) {
	p.hookMu.Lock()
	defer p.hookMu.Unlock()
	p.decisionHook = hook
}

// Close stops the worker pool.
func (p *Processor) Close() {
	p.pool.Stop()
}

// AnalyzeCrop picks the best crop window for img at the given target size.
// It never panics and never returns an invalid result; every failure mode
// collapses into a tagged fallback crop.
func (p *Processor) AnalyzeCrop(ctx context.Context, imageID string, img image.Image, targetWidth, targetHeight int, settings Settings) (result Result) {
	start := time.Now()

	var srcW, srcH int
	if img != nil {
		srcW, srcH = img.Bounds().Dx(), img.Bounds().Dy()
	}
	caps := p.devices.Capability()
	estimate := estimateMemory(srcW, srcH)

	meta := map[string]interface{}{
		"cache_hit":       false,
		"memory_estimate": estimate,
		"device_tier":     caps.OverallTier.String(),
	}
	success := false
	defer func() {
		if r := recover(); r != nil {
			log.Printf("AnalyzeCrop: recovered from panic: %v", r)
			result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackError, start)
		}
		meta["strategy"] = result.BestCrop.Strategy
		meta["confidence"] = result.BestCrop.Confidence
		p.monitor.Record("analyze_crop", result.ProcessingTime, success || result.FromCache, meta)
		p.notify(imageID, result)
	}()

	// Battery adjustment happens before validation so its strategy
	// disables apply everywhere downstream.
	batt := p.battery.Strategy(caps.OverallTier)
	effective := applyBatteryStrategy(settings, batt)

	if batt.DeferAnalysis {
		// The most aggressive level defers content analysis entirely; a
		// deterministic centered crop keeps the caller moving.
		meta["deferred"] = true
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackCenter, start)
		return result
	}
	if batt.ProcessingDelay > 0 {
		select {
		case <-time.After(batt.ProcessingDelay):
		case <-ctx.Done():
		}
	}
	if batt.ThrottleBackground {
		if err := p.throttle.Wait(ctx); err != nil {
			result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackError, start)
			return result
		}
	}

	// Input validation. Invalid calls never touch the cache. Settings with
	// no enabled strategy are not an error; the skip gate below routes them
	// to the centered fallback.
	if img == nil || srcW <= 0 || srcH <= 0 || targetWidth <= 0 || targetHeight <= 0 || effective.MaxProcessingTime <= 0 {
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackError, start)
		return result
	}

	// Skip gates: conditions under which analysis is pointless or unsafe.
	if reason, skip := p.skipReason(srcW, srcH, targetWidth, targetHeight, estimate, caps, effective); skip {
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, reason, start)
		return result
	}

	// Cache lookup. The key derives from the caller's settings, not the
	// battery-adjusted ones, so a cached decision survives power swings.
	key := CacheKey(imageID, targetWidth, targetHeight, settings)
	if entry := p.cacheGet(key); entry != nil {
		meta["cache_hit"] = true
		result = Result{
			BestCrop: Coordinates{
				X: entry.CropX, Y: entry.CropY,
				Width: entry.CropWidth, Height: entry.CropHeight,
				Confidence: entry.CropConfidence, Strategy: entry.CropStrategy,
			},
			ProcessingTime: time.Since(start),
			FromCache:      true,
		}
		return result
	}

	scores, err := p.runAnalysis(ctx, img, targetWidth, targetHeight, estimate, caps, effective)
	switch {
	case err == errTimeout:
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackTimeout, start)
		return result
	case err == errMemoryPressure:
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackMemoryPressure, start)
		return result
	case err != nil:
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackAnalyzer, start)
		return result
	}

	best, ok := p.selector.Select(scores, effective)
	if !ok {
		result = p.fallbackResult(srcW, srcH, targetWidth, targetHeight, FallbackCenter, start)
		return result
	}

	success = true
	result = Result{
		BestCrop:       best,
		AllScores:      scores,
		ProcessingTime: time.Since(start),
		FromCache:      false,
	}

	// Best-effort write-back; failures never surface.
	if !IsFallbackStrategy(best.Strategy) {
		p.cachePut(&cache.Entry{
			CacheKey:       key,
			ImageURL:       imageID,
			TargetWidth:    targetWidth,
			TargetHeight:   targetHeight,
			SettingsHash:   settings.Hash(),
			CropX:          best.X,
			CropY:          best.Y,
			CropWidth:      best.Width,
			CropHeight:     best.Height,
			CropConfidence: best.Confidence,
			CropStrategy:   best.Strategy,
		})
	}
	return result
}

// supervision errors used to tag the losing side of the race.
var (
	errTimeout        = fmt.Errorf("analysis timeout")
	errMemoryPressure = fmt.Errorf("memory pressure")
)

// runAnalysis executes the enabled strategies under the timeout/memory
// race. The losing computation is cancelled cooperatively through ctx and
// its late result is discarded.
func (p *Processor) runAnalysis(ctx context.Context, img image.Image, targetWidth, targetHeight int, estimate int64, caps device.Capability, settings Settings) ([]Score, error) {
	batt := p.battery.Strategy(caps.OverallTier)
	budget := p.analysisBudget(settings, caps, batt)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	analysisImg := p.analysisImage(img, caps)

	run := func(c context.Context) ([]Score, error) {
		return p.runStrategies(c, analysisImg, targetWidth, targetHeight, caps, settings)
	}

	var resultCh <-chan analysisOutcome
	if p.shouldIsolate(img, estimate, caps, settings) {
		p.poolOnce.Do(func() { p.pool.Start(caps.MaxConcurrentStrategies) })
		ch, ok := p.pool.Submit(runCtx, run)
		if !ok {
			return nil, fmt.Errorf("worker pool unavailable")
		}
		resultCh = ch
	} else {
		ch := make(chan analysisOutcome, 1)
		go func() {
			scores, err := run(runCtx)
			ch <- analysisOutcome{scores: scores, err: err}
		}()
		resultCh = ch
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()
	ticker := time.NewTicker(p.tuning.MemoryCheckInterval)
	defer ticker.Stop()

	hardLimit := p.memoryLimits(caps)
	for {
		select {
		case outcome := <-resultCh:
			return outcome.scores, outcome.err
		case <-timer.C:
			cancel()
			return nil, errTimeout
		case <-ticker.C:
			if p.memPressure(estimate, hardLimit) {
				cancel()
				return nil, errMemoryPressure
			}
		case <-ctx.Done():
			return nil, errTimeout
		}
	}
}

// analysisBudget computes the effective time budget for one analysis: the
// hard cap bounds the caller's setting first, then the tier and battery
// multipliers each apply exactly once. Conservative tiers scale the budget
// up; battery levels scale it down.
func (p *Processor) analysisBudget(settings Settings, caps device.Capability, batt device.OptimizationStrategy) time.Duration {
	budget := settings.MaxProcessingTime
	if budget > p.tuning.HardTimeoutCap {
		budget = p.tuning.HardTimeoutCap
	}
	if caps.TimeoutMultiplier > 0 {
		budget = time.Duration(float64(budget) * caps.TimeoutMultiplier)
	}
	if batt.TimeoutMultiplier > 0 {
		budget = time.Duration(float64(budget) * batt.TimeoutMultiplier)
	}
	if budget <= 0 {
		budget = time.Millisecond
	}
	return budget
}

// runStrategies fans the enabled strategies out under the device
// concurrency cap. One failing strategy is skipped; only all of them
// failing is an error.
func (p *Processor) runStrategies(ctx context.Context, img image.Image, targetWidth, targetHeight int, caps device.Capability, settings Settings) ([]Score, error) {
	enabled := p.registry.Enabled(settings)
	if len(enabled) == 0 {
		return nil, nil
	}

	results := make([]*Score, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(caps.MaxConcurrentStrategies)

	var mu sync.Mutex
	failures := 0
	for i, strategy := range enabled {
		i, strategy := i, strategy
		g.Go(func() error {
			score, err := strategy.Analyze(gctx, img, targetWidth, targetHeight)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Debugf("Strategy %s failed: %v", strategy.Name(), err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil // isolated: the others keep running
			}
			mu.Lock()
			results[i] = &score
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Preserve registry order for the selection tie-break.
	var scores []Score
	for _, r := range results {
		if r != nil {
			scores = append(scores, *r)
		}
	}
	if len(scores) == 0 && failures > 0 {
		return nil, fmt.Errorf("all %d strategies failed", failures)
	}
	return scores, nil
}

// analysisImage downscales the source once when it exceeds the tier's
// analysis cap, so every strategy works on the same bounded copy. Crop
// windows are normalized and survive the scale change.
func (p *Processor) analysisImage(img image.Image, caps device.Capability) image.Image {
	bounds := img.Bounds()
	maxDim := caps.MaxAnalysisDimension
	if maxDim <= 0 || (bounds.Dx() <= maxDim && bounds.Dy() <= maxDim) {
		return img
	}
	return downscale(img, maxDim)
}

// shouldIsolate routes big images and heavy strategy mixes onto the worker
// pool.
func (p *Processor) shouldIsolate(img image.Image, estimate int64, caps device.Capability, settings Settings) bool {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels > caps.IsolateThresholdPixels {
		return true
	}
	if heavyStrategyCount(settings) >= 2 {
		return true
	}
	// Soft memory limit: still analyzable, but not inline.
	_, soft := p.platformLimits(caps)
	return estimate > soft
}

// skipReason evaluates the gates that bypass analysis and the cache
// entirely.
func (p *Processor) skipReason(srcW, srcH, targetWidth, targetHeight int, estimate int64, caps device.Capability, settings Settings) (string, bool) {
	hard, _ := p.platformLimits(caps)
	if estimate > hard {
		return FallbackMemoryPressure, true
	}
	if srcW < p.tuning.MinImageDimension || srcH < p.tuning.MinImageDimension {
		return FallbackCenter, true
	}
	if targetWidth < p.tuning.MinTargetDimension || targetHeight < p.tuning.MinTargetDimension {
		return FallbackCenter, true
	}
	if len(p.registry.Enabled(settings)) == 0 {
		return FallbackCenter, true
	}
	return "", false
}

// platformLimits returns the (hard, soft) memory gates for this platform.
// Desktop platforms get twice the mobile budget.
func (p *Processor) platformLimits(caps device.Capability) (hard, soft int64) {
	hard, soft = p.tuning.MemoryHardLimit, p.tuning.MemorySoftLimit
	if !device.IsMobilePlatform(caps.Platform) {
		hard *= 2
		soft *= 2
	}
	return hard, soft
}

// memoryLimits returns the hard limit used by the in-flight pressure check.
func (p *Processor) memoryLimits(caps device.Capability) int64 {
	hard, _ := p.platformLimits(caps)
	return hard
}

// estimateMemory approximates the working footprint of analyzing one image:
// the RGBA source plus roughly two working copies.
func estimateMemory(width, height int) int64 {
	return int64(width) * int64(height) * 4 * 3
}

// heapPressure is the default in-flight memory check: the live heap plus
// the analysis estimate measured against a multiple of the hard gate.
func heapPressure(estimate, hardLimit int64) bool {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.HeapAlloc)+estimate > hardLimit*4
}

// fallbackResult wraps a reason-tagged fallback crop into a Result.
func (p *Processor) fallbackResult(srcW, srcH, targetWidth, targetHeight int, reason string, start time.Time) Result {
	return Result{
		BestCrop:       FallbackCrop(srcW, srcH, targetWidth, targetHeight, reason),
		ProcessingTime: time.Since(start),
		FromCache:      false,
	}
}

// applyBatteryStrategy folds the strategy toggles of the optimization
// strategy into a copy of the caller's settings. The timeout multiplier is
// not applied here; analysisBudget applies it once, after the hard cap.
func applyBatteryStrategy(settings Settings, strategy device.OptimizationStrategy) Settings {
	out := settings
	if strategy.DisableEdge {
		out.EdgeDetection = false
	}
	if strategy.DisableEntropy {
		out.Entropy = false
	}
	return out
}

func (p *Processor) cacheGet(key string) *cache.Entry {
	if p.cache == nil {
		return nil
	}
	entry, err := p.cache.Get(key)
	if err != nil {
		log.Debugf("Cache get failed (treated as miss): %v", err)
		return nil
	}
	return entry
}

func (p *Processor) cachePut(entry *cache.Entry) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Put(entry); err != nil {
		log.Debugf("Cache put failed (ignored): %v", err)
	}
}

func (p *Processor) notify(imageID string, result Result) {
	p.hookMu.RLock()
	hook := p.decisionHook
	p.hookMu.RUnlock()
	if hook != nil {
		hook(imageID, result)
	}
}
