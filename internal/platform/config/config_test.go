package config

import (
	"strings"
	"testing"
)

type testConfig struct {
	Addr string `env:"EMBERFORGE_TEST_ADDR" envDefault:":8080"`
	Rate int    `env:"EMBERFORGE_TEST_RATE" envDefault:"7"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg testConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.Rate != 7 {
		t.Fatalf("expected default rate 7, got %d", cfg.Rate)
	}
}

func TestParseEnvOverride(t *testing.T) {
	t.Setenv("EMBERFORGE_TEST_ADDR", ":9999")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %q", cfg.Addr)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("EMBERFORGE_TEST_RATE", "not-an-int")

	var cfg testConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("EMBERFORGE_TEST_RATE", "42")

	cfg, err := Load[testConfig]()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rate != 42 {
		t.Fatalf("expected rate 42, got %d", cfg.Rate)
	}
}
