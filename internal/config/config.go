// Package config loads application configuration from file and
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	SDA    SDAConfig    `yaml:"sda" mapstructure:"sda"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Params ParamsConfig `yaml:"params" mapstructure:"params"`
	Raster RasterConfig `yaml:"raster" mapstructure:"raster"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SDAConfig configures the Soil Data Access client.
type SDAConfig struct {
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	ComponentChunk int     `yaml:"component_chunk" mapstructure:"component_chunk"`
	HorizonChunk   int     `yaml:"horizon_chunk" mapstructure:"horizon_chunk"`
	MaxConcurrent  int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// StoreConfig configures the run/cache database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// ParamsConfig configures the parameter engine.
type ParamsConfig struct {
	Strategy        string  `yaml:"strategy" mapstructure:"strategy"`
	SurfaceTopCm    float64 `yaml:"surface_top_cm" mapstructure:"surface_top_cm"`
	SurfaceBottomCm float64 `yaml:"surface_bottom_cm" mapstructure:"surface_bottom_cm"`
	InitialMoisture float64 `yaml:"initial_moisture" mapstructure:"initial_moisture"`
}

// RasterConfig configures grid output.
type RasterConfig struct {
	Resolution float64  `yaml:"resolution" mapstructure:"resolution"`
	Fields     []string `yaml:"fields" mapstructure:"fields"`
}

// OutputConfig configures export locations.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and
// GREENAMPT_* environment variables, applying defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GREENAMPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sda.endpoint", "https://sdmdataaccess.sc.egov.usda.gov/Tabular/post.rest")
	v.SetDefault("sda.timeout_secs", 300)
	v.SetDefault("sda.max_retries", 3)
	v.SetDefault("sda.rate_per_sec", 5)
	v.SetDefault("sda.component_chunk", 100)
	v.SetDefault("sda.horizon_chunk", 50)
	v.SetDefault("sda.max_concurrent", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "greenampt.db")
	v.SetDefault("params.strategy", "texture")
	v.SetDefault("params.surface_top_cm", 0.0)
	v.SetDefault("params.surface_bottom_cm", 10.0)
	v.SetDefault("params.initial_moisture", 0.2)
	v.SetDefault("raster.resolution", 10.0)
	v.SetDefault("output.dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Params.SurfaceBottomCm <= c.Params.SurfaceTopCm {
		return eris.Errorf("config: surface_bottom_cm (%.1f) must exceed surface_top_cm (%.1f)",
			c.Params.SurfaceBottomCm, c.Params.SurfaceTopCm)
	}
	if c.Raster.Resolution <= 0 {
		return eris.Errorf("config: raster resolution must be positive, got %.2f", c.Raster.Resolution)
	}
	switch c.Params.Strategy {
	case "texture", "hsg", "pedotransfer":
	default:
		return eris.Errorf("config: unknown strategy %q", c.Params.Strategy)
	}
	return nil
}

// InitLogger builds the global zap logger from LogConfig.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
