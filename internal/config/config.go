package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config models driftline.yml: the tuning knobs of the forecast and
// rule engines. Every knob has a default; a missing file means the
// default config, a present file must validate.
type Config struct {
	Forecast struct {
		// Contributions smaller than this many days are suppressed.
		MaterialityThreshold float64 `yaml:"materiality_threshold"`
		// Assumed days to unblock an item with no other tracking.
		BlockedDelayDays float64 `yaml:"blocked_delay_days"`
		// Discount applied to scope reductions (optimism guard).
		ScopeOptimism float64 `yaml:"scope_optimism"`
		// Delta-P80 above which a milestone summary reads at_risk.
		AtRiskThresholdDays float64 `yaml:"at_risk_threshold_days"`
		Risk                struct {
			OpenWeight        float64 `yaml:"open_weight"`
			MitigatingWeight  float64 `yaml:"mitigating_weight"`
			PerRiskCapDays    float64 `yaml:"per_risk_cap_days"`
			DefaultImpactDays float64 `yaml:"default_impact_days"`
		} `yaml:"risk"`
		Buffer struct {
			BaseDays           float64 `yaml:"base_days"`
			PerOpenRiskDays    float64 `yaml:"per_open_risk_days"`
			PerExternalDepDays float64 `yaml:"per_external_dep_days"`
			CapDays            float64 `yaml:"cap_days"`
		} `yaml:"buffer"`
	} `yaml:"forecast"`
	Rules struct {
		Review struct {
			MaterialisedDays       int `yaml:"materialised_days"`
			AcceptedDays           int `yaml:"accepted_days"`
			MitigationFallbackDays int `yaml:"mitigation_fallback_days"`
			AcceptanceFallbackDays int `yaml:"acceptance_fallback_days"`
		} `yaml:"review"`
		BlockImpact struct {
			P50Days float64 `yaml:"p50_days"`
			P80Days float64 `yaml:"p80_days"`
		} `yaml:"block_impact"`
	} `yaml:"rules"`
	Mitigation struct {
		ApproveAboveDays  float64 `yaml:"approve_above_days"`
		EvaluateAboveDays float64 `yaml:"evaluate_above_days"`
	} `yaml:"mitigation"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	f := c.Forecast
	if f.MaterialityThreshold < 0 || f.MaterialityThreshold > 0.5 {
		return fmt.Errorf("forecast.materiality_threshold must be in [0, 0.5]")
	}
	if f.Risk.OpenWeight < 0 || f.Risk.OpenWeight > 1 {
		return fmt.Errorf("forecast.risk.open_weight must be in [0, 1]")
	}
	if f.Risk.MitigatingWeight < 0 || f.Risk.MitigatingWeight > 1 {
		return fmt.Errorf("forecast.risk.mitigating_weight must be in [0, 1]")
	}
	if f.Risk.PerRiskCapDays <= 0 {
		return fmt.Errorf("forecast.risk.per_risk_cap_days must be positive")
	}
	if f.Risk.DefaultImpactDays < 0 {
		return fmt.Errorf("forecast.risk.default_impact_days must not be negative")
	}
	if f.Buffer.CapDays <= 0 {
		return fmt.Errorf("forecast.buffer.cap_days must be positive")
	}
	if f.Buffer.BaseDays < 0 || f.Buffer.PerOpenRiskDays < 0 || f.Buffer.PerExternalDepDays < 0 {
		return fmt.Errorf("forecast.buffer components must not be negative")
	}
	if f.ScopeOptimism <= 0 || f.ScopeOptimism > 1 {
		return fmt.Errorf("forecast.scope_optimism must be in (0, 1]")
	}
	r := c.Rules
	if r.Review.MaterialisedDays <= 0 || r.Review.AcceptedDays <= 0 ||
		r.Review.MitigationFallbackDays <= 0 || r.Review.AcceptanceFallbackDays <= 0 {
		return fmt.Errorf("rules.review windows must be positive")
	}
	if r.BlockImpact.P80Days < r.BlockImpact.P50Days {
		return fmt.Errorf("rules.block_impact.p80_days must be >= p50_days")
	}
	if c.Mitigation.ApproveAboveDays <= c.Mitigation.EvaluateAboveDays {
		return fmt.Errorf("mitigation.approve_above_days must exceed evaluate_above_days")
	}
	return nil
}

// Default returns the built-in Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys not
// present keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `forecast:
  materiality_threshold: 0.1
  blocked_delay_days: 5
  scope_optimism: 0.8
  at_risk_threshold_days: 7

  risk:
    open_weight: 0.6
    mitigating_weight: 0.25
    per_risk_cap_days: 15
    default_impact_days: 3

  buffer:
    base_days: 1.5
    per_open_risk_days: 1.5
    per_external_dep_days: 0.75
    cap_days: 12

rules:
  review:
    materialised_days: 1
    accepted_days: 7
    mitigation_fallback_days: 14
    acceptance_fallback_days: 30

  block_impact:
    p50_days: 7
    p80_days: 14

mitigation:
  approve_above_days: 3
  evaluate_above_days: 1
`
