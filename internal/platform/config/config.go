// Package config loads process configuration from the environment.
//
// Service and CLI configuration structs declare caarlos0/env tags; every
// emberforge variable carries the EMBERFORGE_ prefix so deployments can be
// scoped per environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a fresh T from the environment.
func Load[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Exitf writes a formatted message to stderr and exits with code 1. CLI
// entry points use it for fatal configuration problems.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
