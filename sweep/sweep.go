// Package sweep trains one self-organizing map per hyperparameter tuple in
// parallel and stores a rendered plot (and optionally a weight snapshot) for
// each of them.
package sweep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"som"
	"som/artifact"
)

// DefaultJitter is the standard deviation of the noise added to sample
// positions in rendered plots.
const DefaultJitter = 0.2

// RunConfig describes a sweep. Data is shared by all tasks and must not be
// modified while Run is in progress.
type RunConfig struct {
	Data [][]float64
	Rows int
	Cols int

	Params  []Params
	Workers int           // <= 0 means runtime.NumCPU()
	Timeout time.Duration // per task, 0 means none
	Seed    int64         // task i uses Seed+i

	Store       artifact.Store
	Snapshot    bool
	Compression som.Compression
	Jitter      float64
	Silhouette  bool

	Logger *som.Logger

	// OnResult, if set, is called from worker goroutines as tasks finish.
	OnResult func(Result)
}

// Result is the outcome of one task.
type Result struct {
	Params   Params        `json:"params"`
	Image    string        `json:"image,omitempty"`
	Snapshot string        `json:"snapshot,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`

	QuantizationError float64 `json:"quantization_error"`
	TopographicError  float64 `json:"topographic_error"`
	Silhouette        float64 `json:"silhouette,omitempty"`
	Hits              int     `json:"hits"` // cells that won at least one sample

	Err error `json:"-"`
}

// Run executes every task of cfg and returns their results in Params order.
// A failing task is recorded in its Result and does not stop the others.
// The returned error is non-nil only for an unusable cfg or when ctx ends.
func Run(ctx context.Context, cfg RunConfig) ([]Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = som.NoopLogger()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	results := make([]Result, len(cfg.Params))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range cfg.Params {
		if gctx.Err() != nil {
			results[i] = Result{Params: p, Err: gctx.Err()}
			continue
		}
		g.Go(func() error {
			res := runTask(gctx, &cfg, logger.With("task", p.Name()), i, p)
			results[i] = res
			if cfg.OnResult != nil {
				mu.Lock()
				cfg.OnResult(res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.LogSweep(ctx, len(results), failed, time.Since(start))
	return results, ctx.Err()
}

func (cfg *RunConfig) validate() error {
	if len(cfg.Data) == 0 {
		return errors.New("sweep: no feature vectors")
	}
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return fmt.Errorf("sweep: invalid map size %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.Store == nil {
		return errors.New("sweep: no artifact store")
	}
	if cfg.Jitter < 0 {
		return fmt.Errorf("sweep: negative jitter %v", cfg.Jitter)
	}
	return nil
}

func runTask(ctx context.Context, cfg *RunConfig, logger *som.Logger, i int, p Params) (res Result) {
	start := time.Now()
	res.Params = p
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Elapsed = time.Since(start)
		logger.LogTask(ctx, p.Name(), res.Elapsed, res.Err)
	}()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	res.Err = train(ctx, cfg, logger, i, &res)
	return res
}

func train(ctx context.Context, cfg *RunConfig, logger *som.Logger, i int, res *Result) error {
	p := res.Params
	rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
	m, err := som.New(len(cfg.Data[0]), cfg.Rows, cfg.Cols,
		som.WithLearningRate(p.LearningRate),
		som.WithRadius(p.Radius),
		som.WithRand(rng),
		som.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := m.Train(ctx, cfg.Data, p.Epochs); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	coords, err := m.Assign(cfg.Data)
	if err != nil {
		return err
	}
	if res.QuantizationError, err = m.QuantizationError(cfg.Data); err != nil {
		return err
	}
	if cfg.Rows*cfg.Cols > 1 {
		if res.TopographicError, err = m.TopographicError(cfg.Data); err != nil {
			return err
		}
	}
	hits, err := m.Hits(cfg.Data)
	if err != nil {
		return err
	}
	for _, h := range hits {
		if h > 0 {
			res.Hits++
		}
	}
	if cfg.Silhouette {
		res.Silhouette, err = som.Silhouette(cfg.Data, coords)
		if err != nil && !errors.Is(err, som.ErrTooFewClusters) {
			return err
		}
	}

	var buf bytes.Buffer
	if err := Render(&buf, m.ClusterCenters(), Jitter(coords, cfg.Jitter, rng)); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	name := p.FileName("png")
	if err := cfg.Store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	res.Image = cfg.Store.Location(name)

	if cfg.Snapshot {
		buf.Reset()
		if err := som.Encode(&buf, m, cfg.Compression); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		name = p.FileName("som")
		if err := cfg.Store.Put(ctx, name, buf.Bytes()); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		res.Snapshot = cfg.Store.Location(name)
	}
	return nil
}
