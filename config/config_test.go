package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
data:
  features_csv: features.csv
map:
  rows: 10
  cols: 12
sweep:
  learning_rates: [0.01, 0.1]
  radii: [1, 2.5]
  epochs: [1, 5]
  workers: 3
  timeout: 90s
  seed: 7
output:
  dir: out
  compression: lz4
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "features.csv", cfg.Data.FeaturesCSV)
	assert.Equal(t, "cifar-10-batches-bin", cfg.Data.CIFARDir, "defaults survive partial files")
	assert.Equal(t, Map{Rows: 10, Cols: 12}, cfg.Map)
	assert.Equal(t, []float64{0.01, 0.1}, cfg.Sweep.LearningRates)
	assert.Equal(t, []float64{1, 2.5}, cfg.Sweep.Radii)
	assert.Equal(t, []int{1, 5}, cfg.Sweep.Epochs)
	assert.Equal(t, 3, cfg.Sweep.Workers)
	assert.Equal(t, 90*time.Second, cfg.Sweep.Timeout)
	assert.Equal(t, int64(7), cfg.Sweep.Seed)
	assert.Equal(t, 0.2, cfg.Sweep.Jitter)
	assert.Equal(t, StoreLocal, cfg.Output.Store)
	assert.Equal(t, "lz4", cfg.Output.Compression)
	assert.True(t, cfg.Output.Snapshot)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "map: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "map:\n  rows: 0\n"))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, runtime.NumCPU(), cfg.Sweep.Workers)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"no data":            func(c *Config) { c.Data = Data{} },
		"zero cols":          func(c *Config) { c.Map.Cols = 0 },
		"no radii":           func(c *Config) { c.Sweep.Radii = nil },
		"zero learning rate": func(c *Config) { c.Sweep.LearningRates = []float64{0.1, 0} },
		"negative radius":    func(c *Config) { c.Sweep.Radii = []float64{-1} },
		"negative epochs":    func(c *Config) { c.Sweep.Epochs = []int{-2} },
		"negative workers":   func(c *Config) { c.Sweep.Workers = -1 },
		"negative timeout":   func(c *Config) { c.Sweep.Timeout = -time.Second },
		"negative jitter":    func(c *Config) { c.Sweep.Jitter = -0.1 },
		"unknown store":      func(c *Config) { c.Output.Store = "ftp" },
		"minio no endpoint":  func(c *Config) { c.Output.Store = StoreMinio; c.Output.Bucket = "b" },
		"s3 no bucket":       func(c *Config) { c.Output.Store = StoreS3 },
		"bad compression":    func(c *Config) { c.Output.Compression = "gzip" },
		"bad log level":      func(c *Config) { c.Log.Level = "loud" },
		"bad log format":     func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{
		FeaturesCSV:   "f.csv",
		Rows:          5,
		LearningRates: []float64{0.3},
		Epochs:        []int{2, 4},
		Timeout:       time.Minute,
		Seed:          9,
		Store:         StoreS3,
	})
	assert.Equal(t, "f.csv", cfg.Data.FeaturesCSV)
	assert.Equal(t, Map{Rows: 5, Cols: 20}, cfg.Map)
	assert.Equal(t, []float64{0.3}, cfg.Sweep.LearningRates)
	assert.Equal(t, []float64{1}, cfg.Sweep.Radii)
	assert.Equal(t, []int{2, 4}, cfg.Sweep.Epochs)
	assert.Equal(t, time.Minute, cfg.Sweep.Timeout)
	assert.Equal(t, int64(9), cfg.Sweep.Seed)
	assert.Equal(t, StoreS3, cfg.Output.Store)
	assert.Equal(t, "result/test", cfg.Output.Dir)
}
