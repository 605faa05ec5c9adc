// Package config holds the knobs of a SOM hyperparameter sweep.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a sweep.
type Config struct {
	Data   Data   `yaml:"data"`
	Map    Map    `yaml:"map"`
	Sweep  Sweep  `yaml:"sweep"`
	Output Output `yaml:"output"`
	Log    Log    `yaml:"log"`
}

// Data selects where feature vectors come from. FeaturesCSV wins over CIFARDir.
type Data struct {
	CIFARDir    string `yaml:"cifar_dir"`
	FeaturesCSV string `yaml:"features_csv"`
}

type Map struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

type Sweep struct {
	LearningRates []float64     `yaml:"learning_rates"`
	Radii         []float64     `yaml:"radii"`
	Epochs        []int         `yaml:"epochs"`
	Workers       int           `yaml:"workers"`
	Timeout       time.Duration `yaml:"timeout"`
	Seed          int64         `yaml:"seed"`
	Jitter        float64       `yaml:"jitter"`
	Silhouette    bool          `yaml:"silhouette"`
}

type Output struct {
	Dir            string `yaml:"dir"`
	Store          string `yaml:"store"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	Region         string `yaml:"region"`
	Snapshot       bool   `yaml:"snapshot"`
	Compression    string `yaml:"compression"`
	RateLimitBytes int    `yaml:"rate_limit_bytes"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	StoreLocal = "local"
	StoreMinio = "minio"
	StoreS3    = "s3"
)

// Default returns the settings of the reference CIFAR sweep.
func Default() *Config {
	return &Config{
		Data: Data{CIFARDir: "cifar-10-batches-bin"},
		Map:  Map{Rows: 20, Cols: 20},
		Sweep: Sweep{
			LearningRates: []float64{0.01},
			Radii:         []float64{1},
			Epochs:        []int{1},
			Seed:          1,
			Jitter:        0.2,
		},
		Output: Output{
			Dir:         "result/test",
			Store:       StoreLocal,
			UseSSL:      true,
			Snapshot:    true,
			Compression: "zstd",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overrides captures CLI supplied values. Zero values leave the config alone.
type Overrides struct {
	CIFARDir      string
	FeaturesCSV   string
	Rows          int
	Cols          int
	LearningRates []float64
	Radii         []float64
	Epochs        []int
	Workers       int
	Timeout       time.Duration
	Seed          int64
	OutputDir     string
	Store         string
	LogLevel      string
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.CIFARDir != "" {
		c.Data.CIFARDir = o.CIFARDir
	}
	if o.FeaturesCSV != "" {
		c.Data.FeaturesCSV = o.FeaturesCSV
	}
	if o.Rows > 0 {
		c.Map.Rows = o.Rows
	}
	if o.Cols > 0 {
		c.Map.Cols = o.Cols
	}
	if len(o.LearningRates) > 0 {
		c.Sweep.LearningRates = o.LearningRates
	}
	if len(o.Radii) > 0 {
		c.Sweep.Radii = o.Radii
	}
	if len(o.Epochs) > 0 {
		c.Sweep.Epochs = o.Epochs
	}
	if o.Workers > 0 {
		c.Sweep.Workers = o.Workers
	}
	if o.Timeout > 0 {
		c.Sweep.Timeout = o.Timeout
	}
	if o.Seed != 0 {
		c.Sweep.Seed = o.Seed
	}
	if o.OutputDir != "" {
		c.Output.Dir = o.OutputDir
	}
	if o.Store != "" {
		c.Output.Store = o.Store
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

// Validate verifies the config is runnable and fills derived defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.CIFARDir == "" && c.Data.FeaturesCSV == "" {
		return errors.New("data: cifar_dir or features_csv must be set")
	}
	if c.Map.Rows <= 0 || c.Map.Cols <= 0 {
		return fmt.Errorf("map: rows and cols must be > 0 (got %dx%d)", c.Map.Rows, c.Map.Cols)
	}
	if len(c.Sweep.LearningRates) == 0 || len(c.Sweep.Radii) == 0 || len(c.Sweep.Epochs) == 0 {
		return errors.New("sweep: learning_rates, radii and epochs must not be empty")
	}
	for _, lr := range c.Sweep.LearningRates {
		if lr <= 0 {
			return fmt.Errorf("sweep: learning rate must be > 0 (got %v)", lr)
		}
	}
	for _, r := range c.Sweep.Radii {
		if r < 0 {
			return fmt.Errorf("sweep: radius must be >= 0 (got %v)", r)
		}
	}
	for _, e := range c.Sweep.Epochs {
		if e < 0 {
			return fmt.Errorf("sweep: epochs must be >= 0 (got %d)", e)
		}
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep: workers must be >= 0 (got %d)", c.Sweep.Workers)
	}
	if c.Sweep.Workers == 0 {
		c.Sweep.Workers = runtime.NumCPU()
	}
	if c.Sweep.Timeout < 0 {
		return fmt.Errorf("sweep: timeout must be >= 0 (got %v)", c.Sweep.Timeout)
	}
	if c.Sweep.Jitter < 0 {
		return fmt.Errorf("sweep: jitter must be >= 0 (got %v)", c.Sweep.Jitter)
	}

	switch c.Output.Store {
	case "":
		c.Output.Store = StoreLocal
		fallthrough
	case StoreLocal:
		if c.Output.Dir == "" {
			return errors.New("output: dir must be set for the local store")
		}
	case StoreMinio:
		if c.Output.Endpoint == "" || c.Output.Bucket == "" {
			return errors.New("output: minio store needs endpoint and bucket")
		}
	case StoreS3:
		if c.Output.Bucket == "" {
			return errors.New("output: s3 store needs a bucket")
		}
	default:
		return fmt.Errorf("output: unknown store %q", c.Output.Store)
	}
	switch c.Output.Compression {
	case "", "none", "lz4", "zstd":
	default:
		return fmt.Errorf("output: unknown compression %q", c.Output.Compression)
	}
	if c.Output.RateLimitBytes < 0 {
		return fmt.Errorf("output: rate_limit_bytes must be >= 0 (got %d)", c.Output.RateLimitBytes)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("log: %w", err)
	}
	return level, nil
}
