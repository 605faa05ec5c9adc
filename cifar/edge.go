package cifar

import (
	"image"
)

const (
	// Hysteresis thresholds used for every image.
	EdgeLow  = 100
	EdgeHigh = 200

	edgeOn = 255
)

// Canny detects edges in src: 3x3 Sobel gradients with replicated borders,
// L1 magnitude, non-maximum suppression and 8-connected hysteresis between
// low and high. Edge pixels are 255, the rest 0.
func Canny(src *image.Gray, low, high int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	at := func(x, y int) int {
		return int(src.Pix[clamp(y, 0, h-1)*src.Stride+clamp(x, 0, w-1)])
	}

	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) - (at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) - (at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			k := y*w + x
			dx[k], dy[k] = gx, gy
			mag[k] = iabs(gx) + iabs(gy)
		}
	}
	m := func(x, y int) int {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		strong    = 2
		candidate = 1
	)
	state := make([]uint8, w*h)
	var stack []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			k := y*w + x
			v := mag[k]
			if v <= low || !localMax(v, dx[k], dy[k], x, y, m) {
				continue
			}
			if v > high {
				state[k] = strong
				stack = append(stack, k)
			} else {
				state[k] = candidate
			}
		}
	}

	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(k/w)*out.Stride+k%w] = edgeOn
		x, y := k%w, k/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				n := ny*w + nx
				if state[n] == candidate {
					state[n] = strong
					stack = append(stack, n)
				}
			}
		}
	}
	return out
}

// localMax reports whether magnitude v at (x, y) is a maximum along the
// gradient direction (gx, gy), quantised to one of four directions.
func localMax(v, gx, gy, x, y int, m func(x, y int) int) bool {
	// tan(22.5°) and tan(67.5°) in 15-bit fixed point.
	const (
		tg22 = 13573
		tg67 = 79109
		fix  = 15
	)
	ax, ay := iabs(gx), iabs(gy)
	t22 := ax * tg22
	ay <<= fix
	switch {
	case ay < t22:
		return v > m(x-1, y) && v >= m(x+1, y)
	case ay > ax*tg67:
		return v > m(x, y-1) && v >= m(x, y+1)
	default:
		s := 1
		if (gx < 0) != (gy < 0) {
			s = -1
		}
		return v > m(x-s, y-1) && v > m(x+s, y+1)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
