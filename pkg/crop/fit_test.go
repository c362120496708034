package crop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitWindow(t *testing.T) {
	t.Run("matching aspect returns full image", func(t *testing.T) {
		w := FitWindow(3840, 2160, 1920, 1080, 0.5)
		assert.Equal(t, Coordinates{X: 0, Y: 0, Width: 1, Height: 1}, w)
	})

	t.Run("landscape source to portrait target spans full height", func(t *testing.T) {
		// 1920x1080 source onto a 1080x2400 phone screen.
		w := FitWindow(1920, 1080, 1080, 2400, 0.5)

		assert.NoError(t, w.Validate())
		assert.Equal(t, 1.0, w.Height)
		assert.Equal(t, 0.0, w.Y)
		// Window width = (1080/2400) / (1920/1080) = 0.253125
		assert.InDelta(t, 0.253125, w.Width, 1e-9)
		// Centered along the horizontal free axis.
		assert.InDelta(t, (1-0.253125)/2, w.X, 1e-9)
	})

	t.Run("portrait source to landscape target spans full width", func(t *testing.T) {
		w := FitWindow(1080, 1920, 1920, 1080, 0.5)

		assert.NoError(t, w.Validate())
		assert.Equal(t, 1.0, w.Width)
		assert.Equal(t, 0.0, w.X)
		assert.InDelta(t, (1080.0/1920.0)/(1920.0/1080.0), w.Height, 1e-9)
	})

	t.Run("offset slides along the free axis", func(t *testing.T) {
		left := FitWindow(1920, 1080, 1080, 2400, 0.0)
		right := FitWindow(1920, 1080, 1080, 2400, 1.0)

		assert.Equal(t, 0.0, left.X)
		assert.InDelta(t, 1.0, right.X+right.Width, 1e-9)
		assert.Equal(t, left.Width, right.Width)
	})

	t.Run("offset outside unit range is clamped", func(t *testing.T) {
		w := FitWindow(1920, 1080, 1080, 2400, 7.0)
		assert.NoError(t, w.Validate())
		assert.InDelta(t, 1.0, w.X+w.Width, 1e-9)
	})

	t.Run("degenerate input yields full window", func(t *testing.T) {
		w := FitWindow(0, 1080, 1080, 2400, 0.5)
		assert.Equal(t, Coordinates{Width: 1, Height: 1}, w)
	})
}

func TestCandidateOffsets(t *testing.T) {
	t.Run("single step is centered", func(t *testing.T) {
		assert.Equal(t, []float64{0.5}, candidateOffsets(1))
	})

	t.Run("covers both ends and the center", func(t *testing.T) {
		offsets := candidateOffsets(9)
		require.Len(t, offsets, 9)
		assert.Equal(t, 0.0, offsets[0])
		assert.Equal(t, 0.5, offsets[4])
		assert.Equal(t, 1.0, offsets[8])
	})
}

func TestLumaGrid(t *testing.T) {
	t.Run("downsamples to the cap", func(t *testing.T) {
		g := newLumaGrid(createTestImage(1600, 800), 128)
		assert.Equal(t, 128, g.w)
		assert.Equal(t, 64, g.h)
	})

	t.Run("small images keep their size", func(t *testing.T) {
		g := newLumaGrid(createTestImage(60, 40), 128)
		assert.Equal(t, 60, g.w)
		assert.Equal(t, 40, g.h)
	})

	t.Run("uniform image has uniform mean", func(t *testing.T) {
		g := newLumaGrid(createTestImage(200, 100), 128)
		full := g.mean(Coordinates{X: 0, Y: 0, Width: 1, Height: 1})
		half := g.mean(Coordinates{X: 0, Y: 0, Width: 0.5, Height: 1})
		assert.InDelta(t, full, half, 0.01)
	})

	t.Run("gradient centroid leans bright side", func(t *testing.T) {
		g := newLumaGrid(createGradientImage(200, 100), 128)
		cx, _ := g.centroid(Coordinates{X: 0, Y: 0, Width: 1, Height: 1})
		assert.Greater(t, cx, 0.5)
	})

	t.Run("uniform centroid is centered", func(t *testing.T) {
		g := newLumaGrid(createTestImage(200, 100), 128)
		cx, cy := g.centroid(Coordinates{X: 0, Y: 0, Width: 1, Height: 1})
		assert.InDelta(t, 0.5, cx, 0.05)
		assert.InDelta(t, 0.5, cy, 0.05)
	})
}
