package crop

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	assert.Equal(t, 9, cfg.CandidateSteps)
	assert.Equal(t, 5*time.Second, cfg.HardTimeoutCap)
	assert.Equal(t, 100*time.Millisecond, cfg.MemoryCheckInterval)
	assert.Equal(t, 100, cfg.MinImageDimension)
	assert.Equal(t, 50, cfg.MinTargetDimension)
	assert.Equal(t, int64(100<<20), cfg.MemorySoftLimit)
	assert.Equal(t, int64(150<<20), cfg.MemoryHardLimit)
}

func TestLoadTuningConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultTuningConfig(), cfg)
	})

	t.Run("overlay replaces only named fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		require.NoError(t, os.WriteFile(path, []byte("candidate_steps: 5\nhard_timeout_cap: 2s\n"), 0644))

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.CandidateSteps)
		assert.Equal(t, 2*time.Second, cfg.HardTimeoutCap)
		assert.Equal(t, 64, cfg.HistogramBins)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tuning.yaml")
		require.NoError(t, os.WriteFile(path, []byte("candidate_steps: [oops"), 0644))

		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})
}
