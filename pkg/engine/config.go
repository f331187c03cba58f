package engine

import (
	"runtime"
	"time"

	"github.com/Sumatoshi-tech/codedrift/pkg/classify"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
)

// Default advisory call policy.
const (
	defaultAITimeout     = 30 * time.Second
	defaultAIRetries     = 2
	defaultAIConcurrency = 4
	defaultAIBackoff     = 500 * time.Millisecond
)

// AIConfig is the advisory collaborator call policy.
type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries     int           `mapstructure:"retries" yaml:"retries"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Backoff     time.Duration `mapstructure:"backoff" yaml:"backoff"`
}

// Config is the engine's read-only per-run configuration.
type Config struct {
	// Workers bounds per-file parallelism within a commit.
	Workers int `mapstructure:"workers" yaml:"workers"`

	Matcher    match.Config        `mapstructure:"matcher" yaml:"matcher"`
	Thresholds classify.Thresholds `mapstructure:"thresholds" yaml:"thresholds"`
	AI         AIConfig            `mapstructure:"ai" yaml:"ai"`
}

// DefaultConfig returns the tuned default engine configuration.
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.NumCPU(),
		Matcher:    match.DefaultConfig(),
		Thresholds: classify.DefaultThresholds(),
		AI: AIConfig{
			Timeout:     defaultAITimeout,
			Retries:     defaultAIRetries,
			Concurrency: defaultAIConcurrency,
			Backoff:     defaultAIBackoff,
		},
	}
}

// Validate normalizes out-of-range values back to usable defaults.
func (c *Config) Validate() {
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}

	if c.Matcher.Threshold <= 0 || c.Matcher.Threshold > 1 {
		c.Matcher = match.DefaultConfig()
	}

	c.Thresholds.Validate()

	if c.AI.Timeout <= 0 {
		c.AI.Timeout = defaultAITimeout
	}

	if c.AI.Retries < 0 {
		c.AI.Retries = defaultAIRetries
	}

	if c.AI.Concurrency < 1 {
		c.AI.Concurrency = defaultAIConcurrency
	}

	if c.AI.Backoff <= 0 {
		c.AI.Backoff = defaultAIBackoff
	}
}
