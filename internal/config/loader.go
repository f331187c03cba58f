package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/codedrift/pkg/ai"
	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
)

// configName is the config file name without extension.
const configName = ".codedrift"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for codedrift settings.
const envPrefix = "CODEDRIFT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// defaultStorePath is the default badger database directory.
const defaultStorePath = ".codedrift-db"

// Load loads configuration from file, env vars, and defaults. If configPath
// is non-empty, it is used as the explicit config file path. Otherwise the
// config file is searched in CWD and $HOME. A missing config file is not an
// error; defaults are used.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	defaults := engine.DefaultConfig()

	viperCfg.SetDefault("engine.workers", defaults.Workers)

	viperCfg.SetDefault("engine.matcher.threshold", match.DefaultThreshold)
	viperCfg.SetDefault("engine.matcher.name_weight", match.DefaultNameWeight)
	viperCfg.SetDefault("engine.matcher.params_weight", match.DefaultParamsWeight)
	viperCfg.SetDefault("engine.matcher.shape_weight", match.DefaultShapeWeight)
	viperCfg.SetDefault("engine.matcher.parent_weight", match.DefaultParentWeight)

	viperCfg.SetDefault("engine.thresholds.complexity_delta", defaults.Thresholds.ComplexityDelta)
	viperCfg.SetDefault("engine.thresholds.higher_order_ratio", defaults.Thresholds.HigherOrderRatio)

	viperCfg.SetDefault("engine.ai.enabled", false)
	viperCfg.SetDefault("engine.ai.model", ai.DefaultModel)
	viperCfg.SetDefault("engine.ai.timeout", defaults.AI.Timeout)
	viperCfg.SetDefault("engine.ai.retries", defaults.AI.Retries)
	viperCfg.SetDefault("engine.ai.concurrency", defaults.AI.Concurrency)
	viperCfg.SetDefault("engine.ai.backoff", defaults.AI.Backoff)

	viperCfg.SetDefault("storage.path", defaultStorePath)
	viperCfg.SetDefault("storage.sync_writes", false)

	viperCfg.SetDefault("log.level", "info")
	viperCfg.SetDefault("log.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
}
