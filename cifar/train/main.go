// Command train sweeps SOM hyperparameters over CIFAR-10 vehicle edge
// features and stores one rendered map per combination.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"som"
	"som/artifact"
	"som/cifar"
	"som/config"
	"som/sweep"
)

var (
	configFile = flag.String("config", "", "YAML config file")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	httpPort   = flag.Int("http", 0, "serve progress on this port, 0 disables")

	cifarDir    = flag.String("cifar", "", "directory holding data_batch_{1..5}.bin")
	featuresCSV = flag.String("features", "", "read normalised features from this CSV instead of CIFAR")
	dumpCSV     = flag.String("dumpFeatures", "", "write the normalised features to this CSV")
	rows        = flag.Int("rows", 0, "map rows")
	cols        = flag.Int("cols", 0, "map columns")
	lrs         = flag.String("lr", "", "comma separated learning rates")
	radii       = flag.String("radius", "", "comma separated radii")
	epochs      = flag.String("epochs", "", "comma separated epoch counts")
	workers     = flag.Int("workers", 0, "parallel tasks")
	timeout     = flag.Duration("timeout", 0, "per task timeout")
	seed        = flag.Int64("seed", 0, "base seed")
	outDir      = flag.String("out", "", "output directory for the local store")
	store       = flag.String("store", "", "artifact store: local, minio or s3")
	logLevel    = flag.String("log", "", "log level")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

// run holds the body of main so deferred cleanup, the CPU profile in
// particular, happens before a failing exit.
func run() error {
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	compression, err := som.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	data, stats, err := loadFeatures(cfg.Data)
	if err != nil {
		return fmt.Errorf("load features: %w", err)
	}
	logger.InfoContext(ctx, "features loaded", "samples", len(data), "elapsed", time.Since(start))
	if *dumpCSV != "" {
		if err := writeFeatures(*dumpCSV, data); err != nil {
			return fmt.Errorf("dump features: %w", err)
		}
	}

	st, err := newStore(ctx, cfg.Output)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if stats != nil {
		var buf bytes.Buffer
		if err := cifar.WriteStats(&buf, *stats); err != nil {
			return err
		}
		if err := st.Put(ctx, cifar.StatsName, buf.Bytes()); err != nil {
			return fmt.Errorf("store stats: %w", err)
		}
	}

	prog := &progress{}
	if *httpPort > 0 {
		http.Handle("/Results", prog)
		go func() {
			log.Printf("Listening on port %d", *httpPort)
			if err := http.ListenAndServe(fmt.Sprintf(":%d", *httpPort), nil); err != nil {
				log.Printf("%v", err)
			}
		}()
	}

	params := sweep.Product(cfg.Sweep.LearningRates, cfg.Sweep.Radii, cfg.Sweep.Epochs)
	logger.InfoContext(ctx, "sweep started", "tasks", len(params), "workers", cfg.Sweep.Workers,
		"map", fmt.Sprintf("%dx%d", cfg.Map.Rows, cfg.Map.Cols))
	results, err := sweep.Run(ctx, sweep.RunConfig{
		Data:        data,
		Rows:        cfg.Map.Rows,
		Cols:        cfg.Map.Cols,
		Params:      params,
		Workers:     cfg.Sweep.Workers,
		Timeout:     cfg.Sweep.Timeout,
		Seed:        cfg.Sweep.Seed,
		Store:       st,
		Snapshot:    cfg.Output.Snapshot,
		Compression: compression,
		Jitter:      cfg.Sweep.Jitter,
		Silhouette:  cfg.Sweep.Silhouette,
		Logger:      logger,
		OnResult:    prog.add,
	})
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		log.Printf("%s: qe %.4f, te %.4f, silhouette %.4f, cells hit %d, %s", r.Params, r.QuantizationError,
			r.TopographicError, r.Silhouette, r.Hits, r.Image)
	}
	b, err := json.MarshalIndent(reports(results), "", "  ")
	if err != nil {
		return err
	}
	if err := st.Put(ctx, "results.json", b); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(results))
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}
	o := config.Overrides{
		CIFARDir:    *cifarDir,
		FeaturesCSV: *featuresCSV,
		Rows:        *rows,
		Cols:        *cols,
		Workers:     *workers,
		Timeout:     *timeout,
		Seed:        *seed,
		OutputDir:   *outDir,
		Store:       *store,
		LogLevel:    *logLevel,
	}
	var err error
	if o.LearningRates, err = parseFloats(*lrs); err != nil {
		return nil, fmt.Errorf("-lr: %w", err)
	}
	if o.Radii, err = parseFloats(*radii); err != nil {
		return nil, fmt.Errorf("-radius: %w", err)
	}
	if o.Epochs, err = parseInts(*epochs); err != nil {
		return nil, fmt.Errorf("-epochs: %w", err)
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(c config.Log) (*som.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	if c.Format == "json" {
		return som.NewJSONLogger(level), nil
	}
	return som.NewTextLogger(level), nil
}

// loadFeatures returns the training matrix and, when it was normalised here,
// the statistics held-out data must be scaled with.
func loadFeatures(d config.Data) ([][]float64, *cifar.Stats, error) {
	if d.FeaturesCSV != "" {
		f, err := os.Open(d.FeaturesCSV)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		data, err := cifar.ReadCSV(f)
		return data, nil, err
	}
	images, err := cifar.LoadVehicles(d.CIFARDir)
	if err != nil {
		return nil, nil, err
	}
	data := cifar.Features(images)
	stats, err := cifar.Normalize(data)
	if err != nil {
		return nil, nil, err
	}
	return data, &stats, nil
}

func writeFeatures(path string, data [][]float64) error {
	var buf bytes.Buffer
	if err := cifar.WriteCSV(&buf, data); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func newStore(ctx context.Context, o config.Output) (artifact.Store, error) {
	var st artifact.Store
	switch o.Store {
	case config.StoreMinio:
		client, err := artifact.DialMinio(o.Endpoint, o.AccessKey, o.SecretKey, o.UseSSL)
		if err != nil {
			return nil, err
		}
		st = artifact.NewMinioStore(client, o.Bucket, o.Prefix)
	case config.StoreS3:
		client, err := artifact.DialS3(ctx, o.Region)
		if err != nil {
			return nil, err
		}
		st = artifact.NewS3Store(client, o.Bucket, o.Prefix)
	default:
		st = artifact.NewLocalStore(o.Dir)
	}
	return artifact.NewRateLimited(st, o.RateLimitBytes), nil
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type report struct {
	sweep.Result
	Error string `json:"error,omitempty"`
}

func reports(results []sweep.Result) []report {
	out := make([]report, len(results))
	for i, r := range results {
		out[i].Result = r
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

// progress collects finished tasks for the /Results endpoint.
type progress struct {
	mu      sync.Mutex
	results []sweep.Result
}

func (p *progress) add(r sweep.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
}

func (p *progress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	b, err := json.Marshal(reports(p.results))
	p.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
