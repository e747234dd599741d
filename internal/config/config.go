// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Inputs    InputsConfig    `yaml:"inputs" mapstructure:"inputs"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	SafeZones SafeZonesConfig `yaml:"safe_zones" mapstructure:"safe_zones"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GridConfig describes the raster geometry shared by all input layers.
type GridConfig struct {
	CellSize float64 `yaml:"cell_size" mapstructure:"cell_size"`
}

// InputsConfig points at the input rasters and the source shapefile.
type InputsConfig struct {
	DEM           string `yaml:"dem" mapstructure:"dem"`
	Landcover     string `yaml:"landcover" mapstructure:"landcover"`
	Probability   string `yaml:"probability" mapstructure:"probability"`
	Sources       string `yaml:"sources" mapstructure:"sources"`
	SourceNameCol string `yaml:"source_name_col" mapstructure:"source_name_col"`
	Volcano       string `yaml:"volcano" mapstructure:"volcano"`
}

// WalkingSpeed is one named pedestrian speed in meters per second.
type WalkingSpeed struct {
	Name            string  `yaml:"name" mapstructure:"name"`
	MetersPerSecond float64 `yaml:"meters_per_second" mapstructure:"meters_per_second"`
}

// AnalysisConfig tunes the routing computation.
type AnalysisConfig struct {
	Workers             int            `yaml:"workers" mapstructure:"workers"`
	ImpassableThreshold float64        `yaml:"impassable_threshold" mapstructure:"impassable_threshold"`
	DiagonalPolicy      string         `yaml:"diagonal_policy" mapstructure:"diagonal_policy"`
	DecompositionMode   string         `yaml:"decomposition_mode" mapstructure:"decomposition_mode"`
	Speeds              []WalkingSpeed `yaml:"speeds" mapstructure:"speeds"`
	StreamCode          int            `yaml:"stream_code" mapstructure:"stream_code"`
	HikingPathCode      int            `yaml:"hiking_path_code" mapstructure:"hiking_path_code"`

	// LandcoverFactors maps land-cover class codes (as string keys, viper
	// cannot key maps by int) to traversability factors in [0, 1].
	LandcoverFactors map[string]float64 `yaml:"landcover_factors" mapstructure:"landcover_factors"`
}

// SafeZonesConfig defines the threshold ladders.
type SafeZonesConfig struct {
	Distances     []float64 `yaml:"distances" mapstructure:"distances"`
	Probabilities []float64 `yaml:"probabilities" mapstructure:"probabilities"`
}

// OutputConfig configures report destinations.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("EVAC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("grid.cell_size", 100.0)
	v.SetDefault("inputs.source_name_col", "NAME")
	v.SetDefault("inputs.volcano", "unnamed")
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.impassable_threshold", 1e6)
	v.SetDefault("analysis.diagonal_policy", "source")
	v.SetDefault("analysis.decomposition_mode", "linear")
	v.SetDefault("analysis.stream_code", 11)
	v.SetDefault("analysis.hiking_path_code", 91)
	v.SetDefault("analysis.landcover_factors", map[string]float64{
		"1": 1.0,  // open / bare ground
		"2": 0.8,  // grassland
		"3": 0.6,  // shrub
		"4": 0.5,  // forest
		"5": 0.3,  // dense forest
		"6": 0.0,  // water
		"7": 0.9,  // agriculture
		"8": 0.0,  // settlement obstacles
	})
	v.SetDefault("analysis.speeds", []map[string]any{
		{"name": "slow", "meters_per_second": 0.91},
		{"name": "medium", "meters_per_second": 1.22},
		{"name": "fast", "meters_per_second": 1.52},
	})
	v.SetDefault("safe_zones.distances", []float64{
		500, 1000, 1500, 2000, 2500, 3000, 3500, 4000, 4500,
	})
	v.SetDefault("safe_zones.probabilities", []float64{0.3, 0.5, 0.7})
	v.SetDefault("output.dir", "out")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "evac.db")
	v.SetDefault("server.port", 8080)
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
