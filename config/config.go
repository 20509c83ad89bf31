// Package config loads search settings from YAML with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cloudx-io/openalloc/core"
)

// Environment variables that override file settings.
const (
	EnvMaxIterations = "ALLOC_MAX_ITERATIONS"
	EnvBaseline      = "ALLOC_BASELINE"
	EnvWorkers       = "ALLOC_SEARCH_WORKERS"
)

// Search holds the tunable search settings.
type Search struct {
	MaxIterations int    `yaml:"max_iterations"`
	Baseline      string `yaml:"baseline"`
	Workers       int    `yaml:"workers"`
}

type file struct {
	Search Search `yaml:"search"`
}

// Default returns the settings used when no file is given.
func Default() Search {
	return Search{
		MaxIterations: core.DefaultMaxIterations,
		Baseline:      string(core.BaselineCurrent),
		Workers:       1,
	}
}

// Load reads a YAML file of the form
//
//	search:
//	  max_iterations: 10
//	  baseline: current
//	  workers: 1
//
// Keys left out keep their Default value. Unknown keys are rejected.
func Load(path string) (Search, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Search{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := file{Search: Default()}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Search{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Search.Validate(); err != nil {
		return Search{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg.Search, nil
}

// ApplyEnv overrides fields from the environment through lookup
// (os.LookupEnv in production).
func (s Search) ApplyEnv(lookup func(string) (string, bool)) (Search, error) {
	if v, ok := lookup(EnvMaxIterations); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", EnvMaxIterations, v)
		}
		s.MaxIterations = n
	}
	if v, ok := lookup(EnvBaseline); ok && v != "" {
		s.Baseline = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", EnvWorkers, v)
		}
		s.Workers = n
	}
	return s, s.Validate()
}

// Validate checks ranges and the baseline name.
func (s Search) Validate() error {
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be >= 0, got %d", s.MaxIterations)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", s.Workers)
	}
	if _, err := core.ParseBaseline(s.Baseline); err != nil {
		return err
	}
	return nil
}

// Options converts the settings for core.Search.
func (s Search) Options() (core.SearchOptions, error) {
	baseline, err := core.ParseBaseline(s.Baseline)
	if err != nil {
		return core.SearchOptions{}, err
	}
	return core.SearchOptions{
		MaxIterations: s.MaxIterations,
		Baseline:      baseline,
		Workers:       s.Workers,
	}, nil
}
