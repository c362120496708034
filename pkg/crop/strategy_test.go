package crop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry(DefaultTuningConfig())

	t.Run("order is fixed", func(t *testing.T) {
		all := registry.All()
		require.Len(t, all, 4)
		assert.Equal(t, StrategyRuleOfThirds, all[0].Name())
		assert.Equal(t, StrategyCenterWeighted, all[1].Name())
		assert.Equal(t, StrategyEntropy, all[2].Name())
		assert.Equal(t, StrategyEdgeDetection, all[3].Name())
	})

	t.Run("defaults match the shipped toggles", func(t *testing.T) {
		enabled := registry.Enabled(DefaultSettings())
		require.Len(t, enabled, 3)
		for _, s := range enabled {
			assert.NotEqual(t, StrategyEdgeDetection, s.Name())
		}
	})

	t.Run("enabled honors every toggle", func(t *testing.T) {
		settings := Settings{EdgeDetection: true}
		enabled := registry.Enabled(settings)
		require.Len(t, enabled, 1)
		assert.Equal(t, StrategyEdgeDetection, enabled[0].Name())
	})

	t.Run("lookup finds by name", func(t *testing.T) {
		assert.NotNil(t, registry.Lookup(StrategyEntropy))
		assert.Nil(t, registry.Lookup("face_detection"))
	})

	t.Run("base weights and floors", func(t *testing.T) {
		cases := []struct {
			name   string
			weight float64
			floor  float64
		}{
			{StrategyRuleOfThirds, 0.8, 0.1},
			{StrategyCenterWeighted, 0.6, 0.2},
			{StrategyEntropy, 0.7, 0.15},
			{StrategyEdgeDetection, 0.65, 0.1},
		}
		for _, tc := range cases {
			s := registry.Lookup(tc.name)
			require.NotNil(t, s, tc.name)
			assert.Equal(t, tc.weight, s.BaseWeight(), tc.name)
			assert.Equal(t, tc.floor, s.MinConfidence(), tc.name)
		}
	})
}

func TestStrategiesProduceValidWindows(t *testing.T) {
	registry := NewRegistry(DefaultTuningConfig())
	img := createGradientImage(400, 225)

	for _, strategy := range registry.All() {
		t.Run(strategy.Name(), func(t *testing.T) {
			score, err := strategy.Analyze(context.Background(), img, 1080, 2400)
			require.NoError(t, err)

			assert.Equal(t, strategy.Name(), score.Strategy)
			assert.Equal(t, strategy.Name(), score.Coordinates.Strategy)
			assert.NoError(t, score.Coordinates.Validate())
			assert.GreaterOrEqual(t, score.Score, 0.0)
			assert.LessOrEqual(t, score.Score, 1.0)
			assert.Equal(t, score.Score, score.Coordinates.Confidence)
			assert.NotEmpty(t, score.Metrics)
		})
	}
}

func TestStrategiesAreDeterministic(t *testing.T) {
	registry := NewRegistry(DefaultTuningConfig())
	img := createGradientImage(320, 180)

	for _, strategy := range registry.All() {
		t.Run(strategy.Name(), func(t *testing.T) {
			a, err := strategy.Analyze(context.Background(), img, 100, 200)
			require.NoError(t, err)
			b, err := strategy.Analyze(context.Background(), img, 100, 200)
			require.NoError(t, err)
			assert.Equal(t, a.Coordinates, b.Coordinates)
			assert.Equal(t, a.Score, b.Score)
		})
	}
}

func TestStrategiesHonorCancellation(t *testing.T) {
	registry := NewRegistry(DefaultTuningConfig())
	img := createGradientImage(400, 225)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, strategy := range registry.All() {
		t.Run(strategy.Name(), func(t *testing.T) {
			_, err := strategy.Analyze(ctx, img, 1080, 2400)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestHeavyStrategyCount(t *testing.T) {
	assert.Equal(t, 1, heavyStrategyCount(DefaultSettings()))

	both := DefaultSettings()
	both.EdgeDetection = true
	assert.Equal(t, 2, heavyStrategyCount(both))

	neither := Settings{RuleOfThirds: true}
	assert.Equal(t, 0, heavyStrategyCount(neither))
}
