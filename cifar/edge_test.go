package cifar

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCannyFlat(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	edges := Canny(img, EdgeLow, EdgeHigh)
	for _, p := range edges.Pix {
		assert.Equal(t, uint8(0), p)
	}
}

func TestCannyVerticalStep(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	edges := Canny(img, EdgeLow, EdgeHigh)

	for y := 0; y < 16; y++ {
		var cols []int
		for x := 0; x < 16; x++ {
			if edges.GrayAt(x, y).Y == 255 {
				cols = append(cols, x)
			}
		}
		// Both columns beside the step share the same magnitude; suppression
		// keeps exactly one of them.
		assert.Len(t, cols, 1, "row %d", y)
		if len(cols) == 1 {
			assert.Contains(t, []int{7, 8}, cols[0])
		}
	}
}

func TestCannyWeakEdgeNeedsStrongNeighbour(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			img.Pix[y*img.Stride+x] = 30
		}
	}
	// Magnitude 4*30 = 120 lies between the thresholds and nothing is strong.
	edges := Canny(img, EdgeLow, EdgeHigh)
	for _, p := range edges.Pix {
		assert.Equal(t, uint8(0), p)
	}
}

func TestCannyEmpty(t *testing.T) {
	edges := Canny(image.NewGray(image.Rect(0, 0, 0, 0)), EdgeLow, EdgeHigh)
	assert.Empty(t, edges.Pix)
}
