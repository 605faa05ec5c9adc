package sweep

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"som"
)

func TestInfluenceRadii(t *testing.T) {
	centers := [][]float64{{0, 0}, {3, 4}, {0, 0}, {3, 4.5}}
	assert.InDeltaSlice(t, []float64{2.5, 0.25, 2.5, 0.25}, InfluenceRadii(centers), 1e-12)

	// Identical centers have no distinct neighbour.
	assert.Equal(t, []float64{0, 0}, InfluenceRadii([][]float64{{1, 1}, {1, 1}}))
	assert.Equal(t, []float64{0}, InfluenceRadii([][]float64{{1}}))
}

func TestJitter(t *testing.T) {
	coords := []som.Coord{{I: 0, J: 0}, {I: 2, J: 3}}
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, [][2]float64{{0, 0}, {2, 3}}, Jitter(coords, 0, rng))

	points := Jitter(coords, 0.2, rng)
	require.Len(t, points, 2)
	assert.InDelta(t, 2, points[1][0], 1.5)
	assert.InDelta(t, 3, points[1][1], 1.5)
	assert.NotEqual(t, [2]float64{2, 3}, points[1])
}

func TestRender(t *testing.T) {
	centers := [][]float64{{0, 0, 9}, {4, 0, 9}, {0, 4, 9}}
	samples := [][2]float64{{2, 2}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, centers, samples))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, canvasSize, canvasSize), img.Bounds())

	v := newViewport([][2]float64{{0, 0}, {4, 0}, {0, 4}, {2, 2}})
	at := func(p [2]float64) color.RGBA {
		x, y := v.pixel(p)
		r, g, b, a := img.At(int(math.Round(x)), int(math.Round(y))).RGBA()
		return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	}

	for _, c := range centers {
		assert.Equal(t, colorCenter, at(planar(c)))
	}
	assert.Equal(t, colorSample, at(samples[0]))
	// Nearest distinct center of (0, 0) is 4 away, so its ring has radius 2.
	assert.Equal(t, colorInfluence, at([2]float64{-2, 0}))
	assert.Equal(t, colorBackground, at([2]float64{-0.5, 0.5}))
}

func TestRenderOneDimensional(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, [][]float64{{1}, {2}}, nil))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestNewViewport(t *testing.T) {
	v := newViewport([][2]float64{{0, 0}, {2, 4}})
	assert.Equal(t, -1.0, v.minX)
	assert.Equal(t, 3.0, v.maxX)
	assert.Equal(t, -1.0, v.minY)
	assert.Equal(t, 5.0, v.maxY)

	x, y := v.pixel([2]float64{-1, -1})
	assert.Equal(t, float64(canvasMargin), x)
	assert.Equal(t, float64(canvasSize-canvasMargin), y)
}
