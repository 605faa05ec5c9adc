package som

import (
	"errors"
	"fmt"
)

var (
	// ErrNonFinite is returned when an update would leave a NaN or Inf in the grid.
	ErrNonFinite = errors.New("som: non-finite weight")

	// ErrTooFewClusters is returned by Silhouette when fewer than two clusters are populated.
	ErrTooFewClusters = errors.New("som: need at least two clusters")

	// ErrInvalidSnapshot is returned when a snapshot cannot be decoded.
	ErrInvalidSnapshot = errors.New("som: invalid snapshot")
)

// ErrDimensionMismatch indicates a feature vector whose length differs from the map's input dimension.
//
// The underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("som: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidParameter indicates a hyperparameter outside its valid range.
// A NaN or infinite value unwraps to ErrNonFinite.
type ErrInvalidParameter struct {
	Name  string
	Value any
	cause error
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("som: invalid %s: %v", e.Name, e.Value)
}

func (e *ErrInvalidParameter) Unwrap() error { return e.cause }

// checkRate validates a learning rate or radius. Zero is accepted only when
// allowZero is set.
func checkRate(name string, v float64, allowZero bool) error {
	if !finiteScalar(v) {
		return &ErrInvalidParameter{Name: name, Value: v, cause: ErrNonFinite}
	}
	if v < 0 || (v == 0 && !allowZero) {
		return &ErrInvalidParameter{Name: name, Value: v}
	}
	return nil
}

func checkDim(expected int, v []float64) error {
	if len(v) != expected {
		return &ErrDimensionMismatch{Expected: expected, Actual: len(v)}
	}
	return nil
}
