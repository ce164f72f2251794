package config

import (
	"testing"

	appErrors "copyverify/internal/errors"

	"github.com/spf13/pflag"
)

func parse(t *testing.T, args ...string) (Config, *pflag.FlagSet) {
	t.Helper()
	cfg := Defaults()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.ApplyEnv(fs); err != nil {
		t.Fatalf("env: %v", err)
	}
	return cfg, fs
}

func TestDefaultWorkersIsClamped(t *testing.T) {
	if n := DefaultWorkers(); n < 2 || n > 8 {
		t.Fatalf("expected workers in [2, 8], got %d", n)
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, _ := parse(t, "-s", "/src", "-d", "/dst", "--workers", "3", "--algorithm", "md5", "--verify")
	if cfg.Source != "/src" || cfg.Destination != "/dst" || cfg.Workers != 3 || cfg.Algorithm != "md5" || !cfg.Verify {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxRetries != 3 || cfg.HashChunkSize != 8192 || cfg.Parallel != ParallelAuto {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("COPYVERIFY_SOURCE", "/env/src")
	t.Setenv("COPYVERIFY_DESTINATION", "/env/dst")
	t.Setenv("COPYVERIFY_VERBOSE", "yes")
	t.Setenv("COPYVERIFY_WORKERS", "5")

	cfg, _ := parse(t, "--workers", "2")
	if cfg.Source != "/env/src" || cfg.Destination != "/env/dst" || !cfg.Verbose {
		t.Fatalf("expected env values, got %+v", cfg)
	}
	if cfg.Workers != 2 {
		t.Fatalf("flag should win over env, got %d", cfg.Workers)
	}
}

func TestEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("COPYVERIFY_MAX_RETRIES", "many")
	cfg := Defaults()
	if err := cfg.ApplyEnv(nil); !appErrors.Is(err, appErrors.InvalidConfig) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestApplyArgs(t *testing.T) {
	cfg := Defaults()
	cfg.ApplyArgs([]string{"/src", "/dst"}, true)
	if cfg.Source != "/src" || cfg.Destination != "/dst" || cfg.MultiSelection() {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	multi := Defaults()
	multi.ApplyArgs([]string{"/a", "/b", "/dst"}, true)
	if !multi.MultiSelection() || len(multi.Sources) != 2 || multi.Destination != "/dst" {
		t.Fatalf("unexpected config: %+v", multi)
	}

	scan := Defaults()
	scan.ApplyArgs([]string{"/src"}, false)
	if scan.Source != "/src" {
		t.Fatalf("unexpected config: %+v", scan)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		kind   appErrors.Kind
	}{
		{"missing source", func(c *Config) { c.Source = "" }, appErrors.InvalidConfig},
		{"missing destination", func(c *Config) { c.Destination = "" }, appErrors.InvalidConfig},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, appErrors.InvalidConfig},
		{"zero workers", func(c *Config) { c.Workers = 0 }, appErrors.InvalidConfig},
		{"bad parallel mode", func(c *Config) { c.Parallel = "sometimes" }, appErrors.InvalidConfig},
		{"both source kinds", func(c *Config) { c.Sources = []string{"/a"} }, appErrors.InvalidConfig},
		{"unknown algorithm", func(c *Config) { c.Algorithm = "crc32" }, appErrors.UnsupportedAlgorithm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Source = "/src"
			cfg.Destination = "/dst"
			tt.mutate(&cfg)
			if err := cfg.Validate(true); !appErrors.Is(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}
