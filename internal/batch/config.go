package batch

import (
	"errors"
	"fmt"

	"github.com/kaskra/MLGV/internal/stereo"
	"github.com/kaskra/MLGV/internal/store"
)

// Default locations used when nothing is configured.
const (
	DefaultInputDir  = "./KITTI_2015_subset"
	DefaultOutputDir = "./output/handcrafted_stereo"
)

var (
	ErrNoInputDir  = errors.New("input directory is required")
	ErrNoOutputDir = errors.New("output directory is required")
)

// Config describes one pass of the matcher over a dataset.
type Config struct {
	InputDir     string  `json:"inputDir"`
	OutputDir    string  `json:"outputDir"`
	WindowSize   int     `json:"windowSize"`
	MaxDisparity int     `json:"maxDisparity"`
	Workers      int     `json:"workers,omitempty"`
	Backend      string  `json:"backend,omitempty"`
	Scale        float64 `json:"scale,omitempty"`
	Limit        int     `json:"limit,omitempty"` // 0 = all frames
}

// DefaultConfig returns the configuration of a plain `run` invocation.
func DefaultConfig() Config {
	return Config{
		InputDir:     DefaultInputDir,
		OutputDir:    DefaultOutputDir,
		WindowSize:   stereo.DefaultWindowSize,
		MaxDisparity: stereo.DefaultMaxDisparity,
	}
}

// Params returns the matcher parameters of c.
func (c Config) Params() stereo.Params {
	return stereo.Params{
		WindowSize:   c.WindowSize,
		MaxDisparity: c.MaxDisparity,
		Workers:      c.Workers,
		Backend:      c.Backend,
	}
}

// Validate checks c before any file is touched.
func (c Config) Validate() error {
	if c.InputDir == "" {
		return ErrNoInputDir
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Scale < 0 || c.Scale > 1 {
		return fmt.Errorf("scale must be in (0, 1], got %g", c.Scale)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", c.Limit)
	}
	return nil
}

// Record converts c into its persisted form.
func (c Config) Record() store.RunConfig {
	return store.RunConfig{
		InputDir:     c.InputDir,
		OutputDir:    c.OutputDir,
		WindowSize:   c.WindowSize,
		MaxDisparity: c.MaxDisparity,
		Workers:      c.Workers,
		Backend:      c.Backend,
		Scale:        c.Scale,
		Limit:        c.Limit,
	}
}
