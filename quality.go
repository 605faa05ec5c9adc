package som

import (
	"math"

	"github.com/gonum/floats"
)

// QuantizationError is the mean distance between each sample and the weight
// vector of its winning cell.
func (s *SOM) QuantizationError(data [][]float64) (float64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range data {
		c, err := s.FindWinner(v)
		if err != nil {
			return 0, err
		}
		sum += floats.Distance(s.weights[c.I][c.J], v, 2)
	}
	return sum / float64(len(data)), nil
}

// TopographicError is the fraction of samples whose best and second best
// matching cells are not adjacent on the grid, diagonals included.
func (s *SOM) TopographicError(data [][]float64) (float64, error) {
	if s.rows*s.cols < 2 {
		return 0, &ErrInvalidParameter{Name: "map size", Value: [2]int{s.rows, s.cols}}
	}
	if len(data) == 0 {
		return 0, nil
	}
	var errs int
	for _, v := range data {
		if err := checkDim(s.inputDim, v); err != nil {
			return 0, err
		}
		first, second := s.bestTwo(v)
		if abs(first.I-second.I) > 1 || abs(first.J-second.J) > 1 {
			errs++
		}
	}
	return float64(errs) / float64(len(data)), nil
}

func (s *SOM) bestTwo(v []float64) (Coord, Coord) {
	var first, second Coord
	d1, d2 := math.Inf(1), math.Inf(1)
	for i := 0; i < s.rows; i++ {
		for j := 0; j < s.cols; j++ {
			d := floats.Distance(s.weights[i][j], v, 2)
			switch {
			case d < d1:
				second, d2 = first, d1
				first, d1 = Coord{I: i, J: j}, d
			case d < d2:
				second, d2 = Coord{I: i, J: j}, d
			}
		}
	}
	return first, second
}

// Silhouette returns the mean silhouette coefficient of data clustered by
// labels, using Euclidean distance in feature space. Samples alone in their
// cluster score 0.
func Silhouette(data [][]float64, labels []Coord) (float64, error) {
	if len(data) != len(labels) {
		return 0, &ErrDimensionMismatch{Expected: len(data), Actual: len(labels)}
	}
	for _, v := range data {
		if err := checkDim(len(data[0]), v); err != nil {
			return 0, err
		}
	}
	clusters := make(map[Coord][]int)
	for n, c := range labels {
		clusters[c] = append(clusters[c], n)
	}
	if len(clusters) < 2 {
		return 0, ErrTooFewClusters
	}

	var total float64
	for n, v := range data {
		own := clusters[labels[n]]
		if len(own) == 1 {
			continue
		}
		var a float64
		for _, m := range own {
			if m != n {
				a += floats.Distance(v, data[m], 2)
			}
		}
		a /= float64(len(own) - 1)

		b := math.Inf(1)
		for c, members := range clusters {
			if c == labels[n] {
				continue
			}
			var d float64
			for _, m := range members {
				d += floats.Distance(v, data[m], 2)
			}
			b = math.Min(b, d/float64(len(members)))
		}

		if den := math.Max(a, b); den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(len(data)), nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
