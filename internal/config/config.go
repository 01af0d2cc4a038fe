// Package config loads application configuration and sets up logging.
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
	Solver SolverConfig `yaml:"solver" mapstructure:"solver"`
	Cost   CostConfig   `yaml:"cost" mapstructure:"cost"`
	Geo    GeoConfig    `yaml:"geo" mapstructure:"geo"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SolverConfig holds the optimizer hyperparameters.
type SolverConfig struct {
	Penalty       float64 `yaml:"penalty" mapstructure:"penalty"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
	Workers       int     `yaml:"workers" mapstructure:"workers"`
	Starts        int     `yaml:"starts" mapstructure:"starts"`
	Seed          uint64  `yaml:"seed" mapstructure:"seed"`
}

// CostConfig holds the transport cost parameters.
type CostConfig struct {
	Metric          string  `yaml:"metric" mapstructure:"metric"`
	CostPerKm       float64 `yaml:"cost_per_km" mapstructure:"cost_per_km"`
	VehicleCapacity float64 `yaml:"vehicle_capacity" mapstructure:"vehicle_capacity"`
}

// GeoConfig holds default geographic input locations.
type GeoConfig struct {
	BoundaryPath  string   `yaml:"boundary_path" mapstructure:"boundary_path"`
	BoundaryField string   `yaml:"boundary_field" mapstructure:"boundary_field"`
	BoundaryName  string   `yaml:"boundary_name" mapstructure:"boundary_name"`
	Exclusions    []string `yaml:"exclusions" mapstructure:"exclusions"`
}

// StoreConfig configures the run persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the diagnostics server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
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
	v.SetEnvPrefix("SITEOPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("solver.penalty", 1e9)
	v.SetDefault("solver.max_iterations", 200)
	v.SetDefault("solver.tolerance", 1e-9)
	v.SetDefault("solver.workers", 0)
	v.SetDefault("solver.starts", 12)
	v.SetDefault("solver.seed", 1)
	v.SetDefault("cost.metric", "euclidean")
	v.SetDefault("cost.cost_per_km", 0.02)
	v.SetDefault("cost.vehicle_capacity", 5)
	v.SetDefault("geo.boundary_field", "NAME")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "siteopt.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20)
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
