package classify

// Default threshold values.
const (
	defaultComplexityDelta  = 2
	defaultHigherOrderRatio = 0.25
)

// Thresholds is the read-only tuning policy for the behavioral layer.
type Thresholds struct {
	// ComplexityDelta is the minimum absolute cyclomatic complexity change
	// that produces a complexity event.
	ComplexityDelta int `mapstructure:"complexity_delta" yaml:"complexity_delta"`

	// HigherOrderRatio is the callable-argument call ratio past which a body
	// counts as higher-order style.
	HigherOrderRatio float64 `mapstructure:"higher_order_ratio" yaml:"higher_order_ratio"`
}

// DefaultThresholds returns the tuned default policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ComplexityDelta:  defaultComplexityDelta,
		HigherOrderRatio: defaultHigherOrderRatio,
	}
}

// Validate normalizes out-of-range values back to their defaults.
func (t *Thresholds) Validate() {
	if t.ComplexityDelta < 1 {
		t.ComplexityDelta = defaultComplexityDelta
	}

	if t.HigherOrderRatio <= 0 || t.HigherOrderRatio >= 1 {
		t.HigherOrderRatio = defaultHigherOrderRatio
	}
}
