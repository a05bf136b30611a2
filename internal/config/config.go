// Package config provides configuration management for the analysis engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"trendscope/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Detector DetectorConfig `mapstructure:"detector"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
}

// EngineConfig holds channel-engine defaults.
type EngineConfig struct {
	BandCount     int     `mapstructure:"band_count"`     // interior levels = band_count-1
	BinCount      int     `mapstructure:"bin_count"`      // volume profile bins
	StdMultiplier float64 `mapstructure:"std_multiplier"` // default channel width
	Lookback      int     `mapstructure:"lookback"`       // default static channel window
	EvalBudget    int     `mapstructure:"eval_budget"`    // grid-search evaluation budget
	PriceSource   string  `mapstructure:"price_source"`   // close, hl2, ohlc4
}

// DetectorConfig holds multi-channel detector defaults.
type DetectorConfig struct {
	MinRatio           float64 `mapstructure:"min_ratio"`
	MaxRatio           float64 `mapstructure:"max_ratio"`
	StartingMultiplier float64 `mapstructure:"starting_multiplier"`
	MaxChannels        int     `mapstructure:"max_channels"`
	ProximityThreshold float64 `mapstructure:"proximity_threshold"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trendscope"
	}
	return filepath.Join(home, ".config", "trendscope")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			BandCount:     4,
			BinCount:      24,
			StdMultiplier: 2.0,
			Lookback:      60,
			EvalBudget:    20000,
			PriceSource:   "close",
		},
		Detector: DetectorConfig{
			MinRatio:           0.15,
			MaxRatio:           0.50,
			StartingMultiplier: 2.0,
			MaxChannels:        10,
			ProximityThreshold: 0.01,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    false,
		},
		Store: StoreConfig{
			Path: filepath.Join(DefaultConfigDir(), "trendscope.db"),
		},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(DefaultConfigDir())
	v.AddConfigPath(".")
	v.SetEnvPrefix("TRENDSCOPE")
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.band_count", cfg.Engine.BandCount)
	v.SetDefault("engine.bin_count", cfg.Engine.BinCount)
	v.SetDefault("engine.std_multiplier", cfg.Engine.StdMultiplier)
	v.SetDefault("engine.lookback", cfg.Engine.Lookback)
	v.SetDefault("engine.eval_budget", cfg.Engine.EvalBudget)
	v.SetDefault("engine.price_source", cfg.Engine.PriceSource)
	v.SetDefault("detector.min_ratio", cfg.Detector.MinRatio)
	v.SetDefault("detector.max_ratio", cfg.Detector.MaxRatio)
	v.SetDefault("detector.starting_multiplier", cfg.Detector.StartingMultiplier)
	v.SetDefault("detector.max_channels", cfg.Detector.MaxChannels)
	v.SetDefault("detector.proximity_threshold", cfg.Detector.ProximityThreshold)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("store.path", cfg.Store.Path)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Engine.BandCount < 1 {
		return fmt.Errorf("%w: engine.band_count must be >= 1", errors.ErrConfigInvalid)
	}
	if c.Engine.BinCount < 2 {
		return fmt.Errorf("%w: engine.bin_count must be >= 2", errors.ErrConfigInvalid)
	}
	if c.Engine.StdMultiplier <= 0 {
		return fmt.Errorf("%w: engine.std_multiplier must be positive", errors.ErrConfigInvalid)
	}
	if c.Engine.EvalBudget < 100 {
		return fmt.Errorf("%w: engine.eval_budget must be >= 100", errors.ErrConfigInvalid)
	}
	if c.Detector.MinRatio <= 0 || c.Detector.MaxRatio > 1 || c.Detector.MinRatio >= c.Detector.MaxRatio {
		return fmt.Errorf("%w: detector ratios must satisfy 0 < min < max <= 1", errors.ErrConfigInvalid)
	}
	if c.Detector.MaxChannels < 1 {
		return fmt.Errorf("%w: detector.max_channels must be >= 1", errors.ErrConfigInvalid)
	}
	return nil
}
