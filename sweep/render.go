package sweep

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"math/rand"

	"github.com/gonum/floats"

	"som"
)

const (
	canvasSize   = 1000
	canvasMargin = 40

	centerDot = 6
	sampleDot = 3
	maxGrid   = 200
)

var (
	colorBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorGrid       = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	colorCenter     = color.RGBA{A: 0xff}
	colorInfluence  = color.RGBA{R: 0xff, A: 0xff}
	colorSample     = color.RGBA{B: 0xff, A: 0xff}
)

// Jitter turns winner coordinates into plot points (row, col) with Gaussian
// noise of standard deviation sigma, so samples sharing a cell stay visible.
func Jitter(coords []som.Coord, sigma float64, rng *rand.Rand) [][2]float64 {
	out := make([][2]float64, len(coords))
	for n, c := range coords {
		out[n] = [2]float64{
			float64(c.I) + rng.NormFloat64()*sigma,
			float64(c.J) + rng.NormFloat64()*sigma,
		}
	}
	return out
}

// InfluenceRadii returns, for every center, half the distance to the nearest
// center with a different weight vector, or 0 when there is none.
func InfluenceRadii(centers [][]float64) []float64 {
	radii := make([]float64, len(centers))
	for a := range centers {
		nearest := math.Inf(1)
		for b := range centers {
			if a == b || floats.Equal(centers[a], centers[b]) {
				continue
			}
			nearest = math.Min(nearest, floats.Distance(centers[a], centers[b], 2))
		}
		if !math.IsInf(nearest, 1) {
			radii[a] = nearest / 2
		}
	}
	return radii
}

// Render draws the trained map as a PNG: every cluster center as a black dot
// at its first two weight components, ringed in red by its influence radius,
// and every sample as a blue dot at its jittered grid position.
func Render(w io.Writer, centers [][]float64, samples [][2]float64) error {
	points := make([][2]float64, 0, len(centers)+len(samples))
	for _, c := range centers {
		points = append(points, planar(c))
	}
	points = append(points, samples...)

	v := newViewport(points)
	img := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: colorBackground}, image.Point{}, draw.Src)
	v.grid(img)

	for k, r := range InfluenceRadii(centers) {
		if r > 0 {
			p := planar(centers[k])
			x, y := v.pixel(p)
			ellipse(img, x, y, r*v.sx, r*v.sy, colorInfluence)
		}
	}
	for _, c := range centers {
		x, y := v.pixel(planar(c))
		disc(img, x, y, centerDot, colorCenter)
	}
	for _, s := range samples {
		x, y := v.pixel(s)
		disc(img, x, y, sampleDot, colorSample)
	}
	return png.Encode(w, img)
}

func planar(c []float64) [2]float64 {
	var p [2]float64
	copy(p[:], c)
	return p
}

type viewport struct {
	minX, minY float64
	maxX, maxY float64
	sx, sy     float64 // pixels per unit
}

// newViewport fits points padded by one unit on every side.
func newViewport(points [][2]float64) viewport {
	v := viewport{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	for _, p := range points {
		v.minX, v.maxX = math.Min(v.minX, p[0]), math.Max(v.maxX, p[0])
		v.minY, v.maxY = math.Min(v.minY, p[1]), math.Max(v.maxY, p[1])
	}
	if len(points) == 0 {
		v.minX, v.maxX, v.minY, v.maxY = 0, 0, 0, 0
	}
	v.minX, v.maxX = v.minX-1, v.maxX+1
	v.minY, v.maxY = v.minY-1, v.maxY+1
	span := float64(canvasSize - 2*canvasMargin)
	v.sx = span / (v.maxX - v.minX)
	v.sy = span / (v.maxY - v.minY)
	return v
}

func (v viewport) pixel(p [2]float64) (float64, float64) {
	x := canvasMargin + (p[0]-v.minX)*v.sx
	y := canvasSize - canvasMargin - (p[1]-v.minY)*v.sy
	return x, y
}

func (v viewport) grid(img *image.RGBA) {
	if v.maxX-v.minX > maxGrid || v.maxY-v.minY > maxGrid {
		return
	}
	for gx := math.Ceil(v.minX); gx <= v.maxX; gx++ {
		x, _ := v.pixel([2]float64{gx, v.minY})
		for y := canvasMargin; y <= canvasSize-canvasMargin; y++ {
			img.SetRGBA(int(math.Round(x)), y, colorGrid)
		}
	}
	for gy := math.Ceil(v.minY); gy <= v.maxY; gy++ {
		_, y := v.pixel([2]float64{v.minX, gy})
		for x := canvasMargin; x <= canvasSize-canvasMargin; x++ {
			img.SetRGBA(x, int(math.Round(y)), colorGrid)
		}
	}
}

func disc(img *image.RGBA, cx, cy float64, r int, c color.RGBA) {
	x0, y0 := int(math.Round(cx)), int(math.Round(cy))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x0+dx, y0+dy, c)
			}
		}
	}
}

func ellipse(img *image.RGBA, cx, cy, rx, ry float64, c color.RGBA) {
	steps := int(math.Ceil(2 * math.Pi * math.Max(rx, ry)))
	steps = min(max(steps, 16), 20000)
	for k := 0; k < steps; k++ {
		a := 2 * math.Pi * float64(k) / float64(steps)
		img.SetRGBA(int(math.Round(cx+rx*math.Cos(a))), int(math.Round(cy+ry*math.Sin(a))), c)
	}
}
