package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/floodlab/floodarea/internal/report"
	"github.com/floodlab/floodarea/internal/zonal"
)

// Config holds the full application configuration.
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults" mapstructure:"defaults"`
	Zones    ZonesConfig    `yaml:"zones" mapstructure:"zones"`
	Run      RunConfig      `yaml:"run" mapstructure:"run"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DefaultsConfig holds report parameters applied when a run does not
// override them on the command line or in the request.
type DefaultsConfig struct {
	Thresholds []float64 `yaml:"thresholds" mapstructure:"thresholds"`
	Unit       string    `yaml:"unit" mapstructure:"unit"`
	Format     string    `yaml:"format" mapstructure:"format"`
}

// ZonesConfig configures how zone attributes are read.
type ZonesConfig struct {
	IDField   string `yaml:"id_field" mapstructure:"id_field"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
	Layer     string `yaml:"layer" mapstructure:"layer"`
}

// RunConfig configures run execution.
type RunConfig struct {
	Workers     int  `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DepthStats  bool `yaml:"depth_stats" mapstructure:"depth_stats"`
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Port          int `yaml:"port" mapstructure:"port"`
	RatePerMinute int `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	Burst         int `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLOODAREA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("defaults.thresholds", []float64{0.5, 1.0, 2.0, 3.0})
	v.SetDefault("defaults.unit", "m2")
	v.SetDefault("defaults.format", "csv")
	v.SetDefault("zones.id_field", "id")
	v.SetDefault("zones.name_field", "name")
	v.SetDefault("run.workers", 4)
	v.SetDefault("run.timeout_secs", 300)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_minute", 60)
	v.SetDefault("server.burst", 10)
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

	return &cfg, nil
}

// Validate checks the configuration for the given mode ("report" or
// "serve") and reports every problem at once. Domain rules stay with
// the packages that own them; this only turns their verdicts into
// field-path messages.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "report":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RatePerMinute < 1 {
			problems = append(problems, "server.rate_per_minute must be >= 1")
		}
		if c.Server.Burst < 1 {
			problems = append(problems, "server.burst must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Run.Workers < 1 || c.Run.Workers > 64 {
		problems = append(problems, "run.workers must be between 1 and 64")
	}
	if c.Run.TimeoutSecs < 0 {
		problems = append(problems, "run.timeout_secs must be >= 0")
	}
	if err := zonal.ValidateThresholds(c.Defaults.Thresholds); err != nil {
		problems = append(problems, "defaults.thresholds must be positive and strictly increasing")
	}
	if _, err := zonal.ParseUnit(c.Defaults.Unit); err != nil {
		problems = append(problems, fmt.Sprintf("defaults.unit %q is not a known area unit", c.Defaults.Unit))
	}
	if err := report.ValidateFormat(c.Defaults.Format); err != nil {
		problems = append(problems, fmt.Sprintf("defaults.format %q is not csv, xlsx, or geojson", c.Defaults.Format))
	}

	if len(problems) > 0 {
		return eris.Wrapf(zonal.ErrConfig, "config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
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
