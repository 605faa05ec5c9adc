package sweep

import (
	"fmt"
	"strconv"
)

// Params is one point of a hyperparameter sweep.
type Params struct {
	LearningRate float64 `json:"learning_rate"`
	Radius       float64 `json:"radius"`
	Epochs       int     `json:"epochs"`
}

// Product returns every combination of the given values, learning rate
// varying slowest and epochs fastest.
func Product(learningRates, radii []float64, epochs []int) []Params {
	out := make([]Params, 0, len(learningRates)*len(radii)*len(epochs))
	for _, lr := range learningRates {
		for _, r := range radii {
			for _, e := range epochs {
				out = append(out, Params{LearningRate: lr, Radius: r, Epochs: e})
			}
		}
	}
	return out
}

// Name is the artifact stem for p, e.g. "LR_0.01_Radius_1_Epochs_5".
func (p Params) Name() string {
	return fmt.Sprintf("LR_%s_Radius_%s_Epochs_%d", formatFloat(p.LearningRate), formatFloat(p.Radius), p.Epochs)
}

// FileName is Name with the given extension.
func (p Params) FileName(ext string) string {
	return p.Name() + "." + ext
}

func (p Params) String() string {
	return p.Name()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
