package crop

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TuningConfig holds the internal magic numbers and thresholds for crop
// analysis. These are currently static but centralized here to allow for
// future remote configuration.
type TuningConfig struct {
	// Candidate placement
	CandidateSteps int `yaml:"candidate_steps"` // Default: 9 (window offsets per strategy)

	// Analysis thumbnails
	LumaThumbSize int `yaml:"luma_thumb_size"` // Default: 128 (entropy/thirds)
	EdgeThumbSize int `yaml:"edge_thumb_size"` // Default: 256 (gradient pass)
	HistogramBins int `yaml:"histogram_bins"`  // Default: 64 (entropy histogram)
	EntropyTile   int `yaml:"entropy_tile"`    // Default: 8 (local entropy tile)

	// Supervisor limits
	HardTimeoutCap      time.Duration `yaml:"hard_timeout_cap"`      // Default: 5s
	MemoryCheckInterval time.Duration `yaml:"memory_check_interval"` // Default: 100ms
	MinImageDimension   int           `yaml:"min_image_dimension"`   // Default: 100
	MinTargetDimension  int           `yaml:"min_target_dimension"`  // Default: 50

	// Memory gating (bytes). Desktop thresholds are 2x these mobile values.
	MemorySoftLimit int64 `yaml:"memory_soft_limit"` // Default: 100 MB
	MemoryHardLimit int64 `yaml:"memory_hard_limit"` // Default: 150 MB

	// Edge strength
	StrongEdgeThreshold float64 `yaml:"strong_edge_threshold"` // Default: 0.25

	// Encoding
	EncodingQuality int `yaml:"encoding_quality"` // Default: 95
}

// DefaultTuningConfig returns the standard values.
func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		CandidateSteps:      9,
		LumaThumbSize:       128,
		EdgeThumbSize:       256,
		HistogramBins:       64,
		EntropyTile:         8,
		HardTimeoutCap:      5 * time.Second,
		MemoryCheckInterval: 100 * time.Millisecond,
		MinImageDimension:   100,
		MinTargetDimension:  50,
		MemorySoftLimit:     100 << 20,
		MemoryHardLimit:     150 << 20,
		StrongEdgeThreshold: 0.25,
		EncodingQuality:     95,
	}
}

// LoadTuningConfig reads a YAML overlay on top of the defaults. A missing
// file is not an error; the defaults are returned.
func LoadTuningConfig(path string) (TuningConfig, error) {
	cfg := DefaultTuningConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading tuning config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing tuning config: %w", err)
	}
	return cfg, nil
}
