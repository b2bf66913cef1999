package config_test

import (
	"strings"
	"testing"

	"driftline/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Forecast.BlockedDelayDays != 5 {
		t.Fatalf("expected blocked_delay_days 5, got %g", cfg.Forecast.BlockedDelayDays)
	}
	if cfg.Forecast.Risk.PerRiskCapDays != 15 {
		t.Fatalf("expected per_risk_cap_days 15, got %g", cfg.Forecast.Risk.PerRiskCapDays)
	}
	if cfg.Rules.Review.AcceptedDays != 7 {
		t.Fatalf("expected accepted_days 7, got %d", cfg.Rules.Review.AcceptedDays)
	}
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("forecast:\n  blocked_delay_days: 8\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Forecast.BlockedDelayDays != 8 {
		t.Fatalf("expected override 8, got %g", cfg.Forecast.BlockedDelayDays)
	}
	// Untouched keys keep their defaults.
	if cfg.Forecast.Buffer.CapDays != 12 {
		t.Fatalf("expected default cap 12, got %g", cfg.Forecast.Buffer.CapDays)
	}
}

func TestFromYAMLRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"negative cap", "forecast:\n  risk:\n    per_risk_cap_days: -1\n", "per_risk_cap_days"},
		{"optimism above one", "forecast:\n  scope_optimism: 1.5\n", "scope_optimism"},
		{"inverted block impact", "rules:\n  block_impact:\n    p50_days: 20\n", "p80_days"},
		{"inverted mitigation tiers", "mitigation:\n  approve_above_days: 0.5\n", "approve_above_days"},
		{"malformed yaml", "forecast: [", "invalid config yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := config.LoadOptional("does-not-exist.yml")
	if err != nil {
		t.Fatalf("missing file should mean defaults: %v", err)
	}
	if cfg.Forecast.AtRiskThresholdDays != 7 {
		t.Fatalf("expected default threshold 7, got %g", cfg.Forecast.AtRiskThresholdDays)
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	if err != nil {
		t.Fatalf("generated default must parse: %v", err)
	}
	if *cfg != *config.Default() {
		t.Fatalf("generated yaml drifted from built-in defaults")
	}
}
