package som

import (
	"math"
)

// GridDistance returns the Euclidean distance between two cells measured in grid-index space.
func GridDistance(a, b Coord) float64 {
	di := float64(a.I - b.I)
	dj := float64(a.J - b.J)
	return math.Sqrt(di*di + dj*dj)
}

// Influence is the neighbourhood weight of a cell at grid distance d from the winner.
// Cells farther than radius get exactly zero. A zero radius degenerates to the
// winner alone with influence 1, the limit of the exponential as radius goes to 0.
func Influence(d, radius float64) float64 {
	if d > radius {
		return 0
	}
	if radius == 0 {
		return 1
	}
	return math.Exp(-d / (2 * radius * radius))
}

// Decay returns the fraction of the initial learning rate and radius used at epoch.
// It is 1 at epoch 0 and 1/epochs at the last epoch; it never reaches zero inside a run.
func Decay(epoch, epochs int) float64 {
	return 1 - float64(epoch)/float64(epochs)
}
