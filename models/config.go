package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Thresholds gate the decision policy. All values live in [0, 1] and
// the two weights sum to 1.
type Thresholds struct {
	ActNow          float64 `yaml:"act_now"`          // heuristic alone is enough to act
	SkipNow         float64 `yaml:"skip_now"`         // heuristic alone is enough to skip
	Action          float64 `yaml:"action"`           // blended score needed to act
	ModelOverride   float64 `yaml:"model_override"`   // model confidence that acts on its own
	HeuristicWeight float64 `yaml:"heuristic_weight"`
	ModelWeight     float64 `yaml:"model_weight"`
}

// RouterConfig tunes tier selection. Cheap-tier results with confidence
// inside (EscalateLow, EscalateHigh) escalate to the accurate tier.
type RouterConfig struct {
	Policy       string  `yaml:"policy"` // escalate, cheapest-first, accurate
	EscalateLow  float64 `yaml:"escalate_low"`
	EscalateHigh float64 `yaml:"escalate_high"`
}

// BackendPricing is the per-million-unit price of one backend.
type BackendPricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// VariantLimits cap what a variant plan may create.
type VariantLimits struct {
	MaxOptions  int `yaml:"max_options"`
	MaxVariants int `yaml:"max_variants"`
	MaxImages   int `yaml:"max_images"` // images sent to vision backends per product
}

// DiscountConfig holds per-category discount ceilings in whole percent.
// The default ceiling applies to categories with no entry.
type DiscountConfig struct {
	DefaultCeiling int            `yaml:"default_ceiling"`
	Ceilings       map[string]int `yaml:"ceilings"`
	MaxItems       int            `yaml:"max_items"`
}

// Eligibility force-skips products before any scoring happens.
type Eligibility struct {
	ExcludedVendors []string `yaml:"excluded_vendors"`
	ExcludedTags    []string `yaml:"excluded_tags"`
}

// Config is the operator-editable configuration. Credentials never live
// here; they come from the environment (SHOPIFY_STORE,
// SHOPIFY_ACCESS_TOKEN, ANTHROPIC_API_KEY, GOOGLE_API_KEY).
type Config struct {
	Workers        int                       `yaml:"workers"`
	BatchSize      int                       `yaml:"batch_size"`
	RequestTimeout time.Duration             `yaml:"request_timeout"`
	Thresholds     Thresholds                `yaml:"thresholds"`
	Router         RouterConfig              `yaml:"router"`
	Pricing        map[string]BackendPricing `yaml:"pricing"`
	Variants       VariantLimits             `yaml:"variants"`
	Discount       DiscountConfig            `yaml:"discount"`
	Eligibility    Eligibility               `yaml:"eligibility"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Workers:        4,
		BatchSize:      50,
		RequestTimeout: 60 * time.Second,
		Thresholds: Thresholds{
			ActNow:          0.90,
			SkipNow:         0.15,
			Action:          0.60,
			ModelOverride:   0.85,
			HeuristicWeight: 0.30,
			ModelWeight:     0.70,
		},
		Router: RouterConfig{
			Policy:       "escalate",
			EscalateLow:  0.40,
			EscalateHigh: 0.75,
		},
		Pricing: map[string]BackendPricing{
			"gemini": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
			"claude": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		},
		Variants: VariantLimits{
			MaxOptions:  3,
			MaxVariants: 100,
			MaxImages:   10,
		},
		Discount: DiscountConfig{
			DefaultCeiling: 20,
			Ceilings:       map[string]int{},
			MaxItems:       500,
		},
	}
}

// LoadConfig reads and validates a YAML config file. Missing sections
// fall back to defaults; invalid values are configuration errors and
// the caller is expected to abort.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run under.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	t := c.Thresholds
	for name, v := range map[string]float64{
		"act_now": t.ActNow, "skip_now": t.SkipNow,
		"action": t.Action, "model_override": t.ModelOverride,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be within [0,1], got %v", name, v)
		}
	}
	if t.SkipNow >= t.ActNow {
		return fmt.Errorf("skip_now (%v) must be below act_now (%v)", t.SkipNow, t.ActNow)
	}
	if sum := t.HeuristicWeight + t.ModelWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("heuristic_weight and model_weight must sum to 1, got %v", sum)
	}
	if _, ok := ParsePolicy(c.Router.Policy); !ok {
		return fmt.Errorf("unknown router policy %q", c.Router.Policy)
	}
	if c.Router.EscalateLow >= c.Router.EscalateHigh {
		return fmt.Errorf("escalate_low (%v) must be below escalate_high (%v)", c.Router.EscalateLow, c.Router.EscalateHigh)
	}
	if c.Variants.MaxOptions < 1 || c.Variants.MaxVariants < 1 {
		return fmt.Errorf("variant limits must be positive")
	}
	if c.Discount.DefaultCeiling < 0 || c.Discount.DefaultCeiling > 100 {
		return fmt.Errorf("default_ceiling must be within [0,100], got %d", c.Discount.DefaultCeiling)
	}
	for cat, pct := range c.Discount.Ceilings {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("ceiling for %q must be within [0,100], got %d", cat, pct)
		}
	}
	return nil
}

// CeilingFor returns the discount ceiling for a category, falling back
// to the default for unknown categories. Matching is exact.
func (d DiscountConfig) CeilingFor(category string) int {
	if pct, ok := d.Ceilings[category]; ok {
		return pct
	}
	return d.DefaultCeiling
}
