package crop

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// ApplyCrop extracts the window described by coords from img. Out-of-range
// coordinates are clamped; the window is never empty.
func ApplyCrop(img image.Image, coords Coordinates) image.Image {
	bounds := img.Bounds()
	rect := coords.Clamped().ToRect(bounds.Dx(), bounds.Dy())
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return imaging.Clone(img)
	}
	return imaging.Crop(img, rect.Add(bounds.Min))
}

// ApplyCropAndResize extracts the window and resizes it to the exact target
// dimensions.
func ApplyCropAndResize(img image.Image, coords Coordinates, targetWidth, targetHeight int) image.Image {
	cropped := ApplyCrop(img, coords)
	if targetWidth <= 0 || targetHeight <= 0 {
		return cropped
	}
	return imaging.Resize(cropped, targetWidth, targetHeight, imaging.Lanczos)
}

// downscale bounds the longer side of img to maxDim, preserving aspect.
func downscale(img image.Image, maxDim int) image.Image {
	return imaging.Fit(img, maxDim, maxDim, imaging.Box)
}

// ProcessImage runs the full decision-and-apply flow: analyze, then crop
// and resize to the target. Analysis failures degrade to a fallback crop,
// so the returned image is always usable; Success reports whether a real
// (non-fallback) analysis drove the crop.
func (p *Processor) ProcessImage(ctx context.Context, imageID string, img image.Image, targetWidth, targetHeight int, settings Settings) ProcessedImage {
	if img == nil {
		return ProcessedImage{Err: fmt.Errorf("nil image"), Success: false}
	}

	result := p.AnalyzeCrop(ctx, imageID, img, targetWidth, targetHeight, settings)
	out := ApplyCropAndResize(img, result.BestCrop, targetWidth, targetHeight)

	return ProcessedImage{
		Image:   out,
		Result:  result,
		Success: !IsFallbackStrategy(result.BestCrop.Strategy),
	}
}

// CacheStats returns the persistent cache summary, or zero stats when the
// cache is disabled or failing.
func (p *Processor) CacheStats() CacheStatsInfo {
	if p.cache == nil {
		return CacheStatsInfo{}
	}
	stats, err := p.cache.Stats()
	if err != nil {
		return CacheStatsInfo{}
	}
	return CacheStatsInfo{
		Entries:   stats.Entries,
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		HitRate:   stats.HitRate,
		SizeBytes: stats.SizeBytes,
	}
}

// CacheStatsInfo is the caller-facing cache summary.
type CacheStatsInfo struct {
	Entries   int64   `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	SizeBytes int64   `json:"size_bytes"`
}

// ClearCache drops every cached decision.
func (p *Processor) ClearCache() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Clear()
}

// PerformMaintenance expires old rows then trims to maxEntries, returning
// both counts.
func (p *Processor) PerformMaintenance(ttl time.Duration, maxEntries int) (expired, evicted int64, err error) {
	if p.cache == nil {
		return 0, 0, nil
	}
	return p.cache.Maintenance(ttl, maxEntries)
}

// InvalidateForImage removes every cached decision for one image.
func (p *Processor) InvalidateForImage(imageURL string) (int64, error) {
	if p.cache == nil {
		return 0, nil
	}
	return p.cache.DeleteByImage(imageURL)
}

// InvalidateForSettings removes every cached decision whose settings hash
// differs from the given settings.
func (p *Processor) InvalidateForSettings(settings Settings) (int64, error) {
	if p.cache == nil {
		return 0, nil
	}
	return p.cache.InvalidateForSettings(settings.Hash())
}

// DeviceCapabilityInfo exposes the memoized device capability.
func (p *Processor) DeviceCapabilityInfo() DeviceInfo {
	caps := p.devices.Capability()
	return DeviceInfo{
		Platform:                caps.Platform,
		MemoryTier:              caps.MemoryTier.String(),
		ProcessingTier:          caps.ProcessingTier.String(),
		OverallTier:             caps.OverallTier.String(),
		BatteryOptimized:        caps.BatteryOptimized,
		MaxConcurrentStrategies: caps.MaxConcurrentStrategies,
		MaxAnalysisDimension:    caps.MaxAnalysisDimension,
		IsolateThresholdPixels:  caps.IsolateThresholdPixels,
		TimeoutMultiplier:       caps.TimeoutMultiplier,
	}
}

// DeviceInfo is the caller-facing device capability summary.
type DeviceInfo struct {
	Platform                string  `json:"platform"`
	MemoryTier              string  `json:"memory_tier"`
	ProcessingTier          string  `json:"processing_tier"`
	OverallTier             string  `json:"overall_tier"`
	BatteryOptimized        bool    `json:"battery_optimized"`
	MaxConcurrentStrategies int     `json:"max_concurrent_strategies"`
	MaxAnalysisDimension    int     `json:"max_analysis_dimension"`
	IsolateThresholdPixels  int     `json:"isolate_threshold_pixels"`
	TimeoutMultiplier       float64 `json:"timeout_multiplier"`
}

// PerformanceAnalytics exposes the monitor's full snapshot.
func (p *Processor) PerformanceAnalytics() PerfSnapshot {
	a := p.monitor.Snapshot()
	return PerfSnapshot{
		SampleCount:    a.SampleCount,
		SuccessRate:    a.Overall.SuccessRate,
		MeanDuration:   a.Overall.MeanDuration,
		MedianDuration: a.Overall.MedianDuration,
		Degrading:      a.Degrading,
		CacheHitRate:   a.CacheHit,
		MemoryMeanB:    a.MemoryMean,
	}
}

// PerfSnapshot is the caller-facing performance summary.
type PerfSnapshot struct {
	SampleCount    int           `json:"sample_count"`
	SuccessRate    float64       `json:"success_rate"`
	MeanDuration   time.Duration `json:"mean_duration"`
	MedianDuration time.Duration `json:"median_duration"`
	Degrading      bool          `json:"degrading"`
	CacheHitRate   float64       `json:"cache_hit_rate"`
	MemoryMeanB    int64         `json:"memory_mean_bytes"`
}
