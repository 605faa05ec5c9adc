package som

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/gonum/blas/blas64"
	"github.com/gonum/floats"
)

const (
	DefaultLearningRate = 0.5
	DefaultRadius       = 1.0
	DefaultSeed         = 1

	// ctxCheckInterval is how many samples are processed between context checks.
	ctxCheckInterval = 1024
)

// A Coord addresses a neuron in the grid.
type Coord struct {
	I int // row
	J int // column
}

// Index returns the row-major position of c in a grid with cols columns.
func (c Coord) Index(cols int) int {
	return c.I*cols + c.J
}

type options struct {
	learningRate float64
	radius       float64
	rng          *rand.Rand
	logger       *Logger
}

// Option configures a SOM at construction time.
type Option func(*options)

// WithLearningRate sets the initial learning rate.
func WithLearningRate(lr float64) Option {
	return func(o *options) {
		o.learningRate = lr
	}
}

// WithRadius sets the initial neighbourhood radius, in grid cells.
func WithRadius(r float64) Option {
	return func(o *options) {
		o.radius = r
	}
}

// WithRand sets the generator used to initialise the weights.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithSeed initialises the weights from a fresh generator seeded with seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the logger used for epoch and training events.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// A SOM is a self-organizing map: a rows x cols grid of weight vectors of
// length inputDim trained by competitive learning.
//
// A SOM is not safe for concurrent use. Independent maps share nothing and
// may be trained in parallel.
type SOM struct {
	inputDim int
	rows     int
	cols     int

	initialLR     float64
	initialRadius float64

	// lr and radius are the values used by the most recent epoch.
	lr     float64
	radius float64

	weights [][][]float64
	logger  *Logger

	// scratch space for updateWeights
	delta   []float64
	next    []float64
	touched []Coord
	undo    []float64
}

// New creates a rows x cols map of inputDim-dimensional weights drawn
// uniformly from [0, 1), cell by cell in row-major order.
func New(inputDim, rows, cols int, opts ...Option) (*SOM, error) {
	o := options{
		learningRate: DefaultLearningRate,
		radius:       DefaultRadius,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if inputDim <= 0 {
		return nil, &ErrInvalidParameter{Name: "input dimension", Value: inputDim}
	}
	if rows <= 0 || cols <= 0 {
		return nil, &ErrInvalidParameter{Name: "map size", Value: [2]int{rows, cols}}
	}
	if err := checkRate("learning rate", o.learningRate, false); err != nil {
		return nil, err
	}
	if err := checkRate("radius", o.radius, true); err != nil {
		return nil, err
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(DefaultSeed))
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	s := newSOM(inputDim, rows, cols, o.learningRate, o.radius)
	s.logger = o.logger
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for k := 0; k < inputDim; k++ {
				s.weights[i][j][k] = o.rng.Float64()
			}
		}
	}
	return s, nil
}

func newSOM(inputDim, rows, cols int, lr, radius float64) *SOM {
	return &SOM{
		inputDim:      inputDim,
		rows:          rows,
		cols:          cols,
		initialLR:     lr,
		initialRadius: radius,
		lr:            lr,
		radius:        radius,
		weights:       MakeTensor3(rows, cols, inputDim),
		delta:         make([]float64, inputDim),
		next:          make([]float64, inputDim),
		logger:        NoopLogger(),
	}
}

func (s *SOM) InputDim() int { return s.inputDim }
func (s *SOM) Rows() int     { return s.rows }
func (s *SOM) Cols() int     { return s.cols }

// InitialLearningRate and InitialRadius return the values the schedule decays from.
func (s *SOM) InitialLearningRate() float64 { return s.initialLR }
func (s *SOM) InitialRadius() float64       { return s.initialRadius }

// LearningRate returns the learning rate applied during the most recent epoch.
func (s *SOM) LearningRate() float64 { return s.lr }

// Radius returns the radius applied during the most recent epoch.
func (s *SOM) Radius() float64 { return s.radius }

// Weights returns a copy of the grid, indexed [row][col][component].
func (s *SOM) Weights() [][][]float64 {
	return copyTensor3(s.weights)
}

// Weight returns a copy of the weight vector at c.
func (s *SOM) Weight(c Coord) []float64 {
	return append([]float64(nil), s.weights[c.I][c.J]...)
}

// SetWeight overwrites the weight vector at c.
func (s *SOM) SetWeight(c Coord, w []float64) error {
	if err := checkDim(s.inputDim, w); err != nil {
		return err
	}
	if !s.inBounds(c) {
		return &ErrInvalidParameter{Name: "coordinate", Value: c}
	}
	copy(s.weights[c.I][c.J], w)
	return nil
}

func (s *SOM) inBounds(c Coord) bool {
	return c.I >= 0 && c.I < s.rows && c.J >= 0 && c.J < s.cols
}

// Decay returns the learning rate and radius used at epoch out of epochs.
func (s *SOM) Decay(epoch, epochs int) (learningRate, radius float64) {
	f := Decay(epoch, epochs)
	return s.initialLR * f, s.initialRadius * f
}

// FindWinner returns the cell whose weight vector is closest to v.
// Ties go to the first cell in row-major order.
func (s *SOM) FindWinner(v []float64) (Coord, error) {
	if err := checkDim(s.inputDim, v); err != nil {
		return Coord{}, err
	}
	return s.findWinner(v), nil
}

func (s *SOM) findWinner(v []float64) Coord {
	var best Coord
	minDist := math.Inf(1)
	for i := 0; i < s.rows; i++ {
		for j := 0; j < s.cols; j++ {
			d := floats.Distance(s.weights[i][j], v, 2)
			if d < minDist {
				minDist = d
				best = Coord{I: i, J: j}
			}
		}
	}
	return best
}

// UpdateWeights pulls every cell within radius of winner towards v:
//
//	w += learningRate * Influence(d, radius) * (v - w)
//
// where d is the grid distance to winner. Cells outside the radius are untouched.
// If any cell would become NaN or Inf, ErrNonFinite is returned and no cell changes.
func (s *SOM) UpdateWeights(v []float64, winner Coord, learningRate, radius float64) error {
	if err := checkDim(s.inputDim, v); err != nil {
		return err
	}
	if !finite(v) {
		return ErrNonFinite
	}
	if !s.inBounds(winner) {
		return &ErrInvalidParameter{Name: "winner", Value: winner}
	}
	if err := checkRate("learning rate", learningRate, true); err != nil {
		return err
	}
	if err := checkRate("radius", radius, true); err != nil {
		return err
	}
	return s.updateWeights(v, winner, learningRate, radius)
}

func (s *SOM) updateWeights(v []float64, winner Coord, learningRate, radius float64) error {
	if learningRate == 0 {
		return nil
	}
	// Only rows and columns within radius of the winner can be influenced.
	reach := s.rows + s.cols
	if radius < float64(reach) {
		reach = int(radius)
	}
	iLo, iHi := max(0, winner.I-reach), min(s.rows-1, winner.I+reach)
	jLo, jHi := max(0, winner.J-reach), min(s.cols-1, winner.J+reach)

	// Each cell is computed in next and only copied back once finite. The
	// previous values of written cells are kept in undo so a failure leaves
	// the whole grid as it was.
	s.touched, s.undo = s.touched[:0], s.undo[:0]
	x := blas64.Vector{Inc: 1, Data: s.delta}
	y := blas64.Vector{Inc: 1, Data: s.next}
	for i := iLo; i <= iHi; i++ {
		for j := jLo; j <= jHi; j++ {
			h := Influence(GridDistance(Coord{I: i, J: j}, winner), radius)
			if h == 0 {
				continue
			}
			w := s.weights[i][j]
			floats.SubTo(s.delta, v, w)
			copy(s.next, w)
			blas64.Axpy(s.inputDim, learningRate*h, x, y)
			if !finite(s.next) {
				s.rollback()
				return ErrNonFinite
			}
			s.touched = append(s.touched, Coord{I: i, J: j})
			s.undo = append(s.undo, w...)
			copy(w, s.next)
		}
	}
	return nil
}

func (s *SOM) rollback() {
	for n, c := range s.touched {
		copy(s.weights[c.I][c.J], s.undo[n*s.inputDim:(n+1)*s.inputDim])
	}
}

// Train runs epochs passes over data. At each epoch the learning rate and
// radius are scaled by Decay(epoch, epochs); samples are processed in order,
// each one moving the grid before the next winner is searched.
//
// All vectors are validated (length and finiteness) before the grid is
// touched. Zero epochs or an empty data set leave the grid unchanged.
func (s *SOM) Train(ctx context.Context, data [][]float64, epochs int) error {
	if epochs < 0 {
		return &ErrInvalidParameter{Name: "epochs", Value: epochs}
	}
	for _, v := range data {
		if err := checkDim(s.inputDim, v); err != nil {
			return err
		}
		if !finite(v) {
			return ErrNonFinite
		}
	}

	start := time.Now()
	err := s.train(ctx, data, epochs)
	s.logger.LogTrain(ctx, len(data), epochs, time.Since(start), err)
	return err
}

func (s *SOM) train(ctx context.Context, data [][]float64, epochs int) error {
	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.lr, s.radius = s.Decay(epoch, epochs)
		s.logger.LogEpoch(ctx, epoch, epochs, s.lr, s.radius)

		for n, v := range data {
			if n > 0 && n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			winner := s.findWinner(v)
			if err := s.updateWeights(v, winner, s.lr, s.radius); err != nil {
				return err
			}
		}
	}
	return nil
}
