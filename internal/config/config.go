// Package config holds the settings of the qcml tool, read from a YAML
// file. Keys that are absent keep their default value.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/524D/qcml/internal/logging"
	"github.com/524D/qcml/internal/qcml"
)

// Config is the root of the configuration file
type Config struct {
	Ontology OntologyConfig `yaml:"ontology"`
	Writer   WriterConfig   `yaml:"writer"`
	Reader   ReaderConfig   `yaml:"reader"`
	Log      LogConfig      `yaml:"log"`
}

// OntologyConfig lists the controlled vocabularies to validate against
type OntologyConfig struct {
	// OBO files, plain or .xz compressed
	OBO []string `yaml:"obo"`
	// Cache is an SQLite file the terms are imported into. With an empty
	// OBO list, terms are read from the cache only.
	Cache string `yaml:"cache,omitempty"`
}

// WriterConfig controls report serialization
type WriterConfig struct {
	RatioFill     string `yaml:"ratio_fill"`
	RatioSentinel string `yaml:"ratio_sentinel"`
}

// ReaderConfig controls report parsing
type ReaderConfig struct {
	UnknownAction string `yaml:"unknown_action"`
	// RatioSentinel marks absent ratios in ratio quant layers
	RatioSentinel string `yaml:"ratio_sentinel,omitempty"`
}

// LogConfig selects the logger
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Ontology: OntologyConfig{OBO: []string{}},
		Writer: WriterConfig{
			RatioFill:     qcml.FillOmit.String(),
			RatioSentinel: qcml.DefaultRatioSentinel,
		},
		Reader: ReaderConfig{UnknownAction: qcml.DropUnknownActions.String()},
		Log:    LogConfig{Mode: logging.ModeDevelopment},
	}
}

// Load reads the configuration at path on top of the defaults. An empty
// path or a file that does not exist gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the policy and mode names
func (c Config) Validate() error {
	if _, err := qcml.ParseRatioFill(c.Writer.RatioFill); err != nil {
		return err
	}
	if _, err := qcml.ParseActionPolicy(c.Reader.UnknownAction); err != nil {
		return err
	}
	if _, err := logging.ParseMode(c.Log.Mode); err != nil {
		return err
	}
	return nil
}

// Marshal returns the configuration as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriterOptions converts the writer settings
func (c Config) WriterOptions() (qcml.WriterOptions, error) {
	fill, err := qcml.ParseRatioFill(c.Writer.RatioFill)
	if err != nil {
		return qcml.WriterOptions{}, err
	}
	return qcml.WriterOptions{RatioFill: fill, RatioSentinel: c.Writer.RatioSentinel}, nil
}

// ReaderOptions converts the reader settings. The ontology is not part
// of the configuration and must be set by the caller.
func (c Config) ReaderOptions() (qcml.ReaderOptions, error) {
	policy, err := qcml.ParseActionPolicy(c.Reader.UnknownAction)
	if err != nil {
		return qcml.ReaderOptions{}, err
	}
	return qcml.ReaderOptions{UnknownActions: policy, RatioSentinel: c.Reader.RatioSentinel}, nil
}
