// Package config loads the reviewer-assignment configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Defaults applied when the corresponding key is absent.
const (
	DefaultMinReviewers = 2
	DefaultMaxReviewers = 3
)

// WorkingHours is a daily [Start, End) hour window.
type WorkingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Timezone holds the optional working-hours filter configuration.
type Timezone struct {
	UserTimezones map[string]string `json:"userTimezones"`
	WorkingHours  WorkingHours      `json:"workingHours"`
	Enabled       bool              `json:"enabled"`
}

// Config is the full reviewer-assignment configuration. Loaded once per run
// and immutable thereafter.
//
// CodeOwners preserves declaration order: patterns are evaluated in the order
// they appear in the file, and that order determines reviewer insertion order.
type Config struct {
	CodeOwners       *orderedmap.OrderedMap[string, []string] `json:"codeOwners"`
	Timezone         Timezone                                 `json:"timezone"`
	DefaultReviewers []string                                 `json:"defaultReviewers"`
	MinReviewers     int                                      `json:"minReviewers"`
	MaxReviewers     int                                      `json:"maxReviewers"`
	ExcludeAuthors   bool                                     `json:"excludeAuthors"`
}

// rawConfig mirrors Config with pointer count fields so that absent keys can
// be distinguished from explicit zeros.
type rawConfig struct {
	MinReviewers     *int                                     `json:"minReviewers"`
	MaxReviewers     *int                                     `json:"maxReviewers"`
	CodeOwners       *orderedmap.OrderedMap[string, []string] `json:"codeOwners"`
	DefaultReviewers []string                                 `json:"defaultReviewers"`
	ExcludeAuthors   bool                                     `json:"excludeAuthors"`
	Timezone         Timezone                                 `json:"timezone"`
}

// Load reads and validates the configuration file at path. A missing
// minReviewers or maxReviewers is defaulted with a warning; an unreadable or
// malformed file is a fatal error for the run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates raw configuration JSON.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &Config{
		CodeOwners:       raw.CodeOwners,
		DefaultReviewers: raw.DefaultReviewers,
		ExcludeAuthors:   raw.ExcludeAuthors,
		Timezone:         raw.Timezone,
	}

	if raw.MinReviewers != nil {
		cfg.MinReviewers = *raw.MinReviewers
	} else {
		cfg.MinReviewers = DefaultMinReviewers
		slog.Warn("minReviewers not set in config, using default", "default", DefaultMinReviewers)
	}

	if raw.MaxReviewers != nil {
		cfg.MaxReviewers = *raw.MaxReviewers
	} else {
		cfg.MaxReviewers = DefaultMaxReviewers
		slog.Warn("maxReviewers not set in config, using default", "default", DefaultMaxReviewers)
	}

	if cfg.CodeOwners == nil {
		cfg.CodeOwners = orderedmap.New[string, []string]()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks semantic constraints on a parsed config.
func (c *Config) validate() error {
	if c.MinReviewers < 0 {
		return fmt.Errorf("minReviewers must not be negative (got %d)", c.MinReviewers)
	}
	if c.MaxReviewers < 1 {
		return fmt.Errorf("maxReviewers must be at least 1 (got %d)", c.MaxReviewers)
	}
	if c.MaxReviewers < c.MinReviewers {
		return fmt.Errorf("maxReviewers (%d) must not be less than minReviewers (%d)", c.MaxReviewers, c.MinReviewers)
	}

	if c.Timezone.Enabled {
		wh := c.Timezone.WorkingHours
		if wh.Start < 0 || wh.Start > 23 {
			return fmt.Errorf("timezone.workingHours.start must be 0-23 (got %d)", wh.Start)
		}
		if wh.End < 0 || wh.End > 23 {
			return fmt.Errorf("timezone.workingHours.end must be 0-23 (got %d)", wh.End)
		}
	}

	return nil
}
