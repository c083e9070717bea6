// Package config holds the tunables that cut across internal/parser,
// internal/checker, and internal/vm: a small struct loaded from flags
// in cmd/vaisc with an optional YAML override file for embedding hosts
// that want a persisted config instead of re-passing flags every run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the knobs left as implementation-defined thresholds:
// the checker's multi-error toggle, the parser's multi-error toggle
// and recursion-depth bound, and the VM's tier-up/OSR thresholds.
type Config struct {
	MultiError    bool   `yaml:"multi_error"`
	MaxParseDepth int    `yaml:"max_parse_depth"`
	CallThreshold uint64 `yaml:"call_threshold"`
	OSRThreshold  uint64 `yaml:"osr_threshold"`
	Target        string `yaml:"target"`
}

// Default matches the zero-value behavior of the packages it configures:
// fail-fast, parser.maxParseDepth's own built-in 256, vm's built-in
// 1000/100 thresholds, and the host's native target.
func Default() Config {
	return Config{
		MultiError:    false,
		MaxParseDepth: 0,
		CallThreshold: 0,
		OSRThreshold:  0,
		Target:        "native",
	}
}

// Load reads a YAML config file, starting from Default() so a file that
// only overrides one field leaves the rest at their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
