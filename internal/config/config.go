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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Datasets  DatasetsConfig  `yaml:"datasets" mapstructure:"datasets"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Interpret InterpretConfig `yaml:"interpret" mapstructure:"interpret"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// DatasetsConfig points at the municipal source files. The URL fields are
// optional; when set, the fetch command downloads each export into DataDir.
type DatasetsConfig struct {
	Centerlines string `yaml:"centerlines" mapstructure:"centerlines"`
	Regulations string `yaml:"regulations" mapstructure:"regulations"`
	Parcels     string `yaml:"parcels" mapstructure:"parcels"`
	Meters      string `yaml:"meters" mapstructure:"meters"`

	DataDir        string `yaml:"data_dir" mapstructure:"data_dir"`
	CenterlinesURL string `yaml:"centerlines_url" mapstructure:"centerlines_url"`
	RegulationsURL string `yaml:"regulations_url" mapstructure:"regulations_url"`
	ParcelsURL     string `yaml:"parcels_url" mapstructure:"parcels_url"`
	MetersURL      string `yaml:"meters_url" mapstructure:"meters_url"`
}

// IngestConfig configures the join phase.
type IngestConfig struct {
	ClearMeters        float64 `yaml:"clear_meters" mapstructure:"clear_meters"`
	BoundaryMeters     float64 `yaml:"boundary_meters" mapstructure:"boundary_meters"`
	SearchRadiusMeters float64 `yaml:"search_radius_meters" mapstructure:"search_radius_meters"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
	ManifestDir        string  `yaml:"manifest_dir" mapstructure:"manifest_dir"`
}

// InterpretConfig configures the optional regulation annotator.
type InterpretConfig struct {
	Key   string  `yaml:"key" mapstructure:"key"`
	Model string  `yaml:"model" mapstructure:"model"`
	RPS   float64 `yaml:"rps" mapstructure:"rps"`
}

// ServerConfig configures the query server.
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
	v.SetEnvPrefix("CURB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "curb.db")
	v.SetDefault("datasets.data_dir", "data")
	v.SetDefault("ingest.clear_meters", 8.0)
	v.SetDefault("ingest.boundary_meters", 15.0)
	v.SetDefault("ingest.search_radius_meters", 30.0)
	v.SetDefault("ingest.concurrency", 8)
	v.SetDefault("interpret.model", "claude-haiku-4-5-20251001")
	v.SetDefault("interpret.rps", 2.0)
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

// Validate checks that the fields a command depends on are populated.
// Mode is the command name.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}

	switch mode {
	case "ingest":
		if c.Datasets.Centerlines == "" {
			problems = append(problems, "datasets.centerlines is required")
		}
		if c.Datasets.Regulations == "" {
			problems = append(problems, "datasets.regulations is required")
		}
		if c.Ingest.ClearMeters <= 0 || c.Ingest.BoundaryMeters <= c.Ingest.ClearMeters ||
			c.Ingest.SearchRadiusMeters <= c.Ingest.BoundaryMeters {
			problems = append(problems, "ingest distances must satisfy 0 < clear_meters < boundary_meters < search_radius_meters")
		}
		if c.Ingest.Concurrency < 1 || c.Ingest.Concurrency > 64 {
			problems = append(problems, "ingest.concurrency must be between 1 and 64")
		}
	case "serve", "check", "status":
		// Port check above covers serve; the others only need a store.
	case "fetch":
		if c.Datasets.DataDir == "" {
			problems = append(problems, "datasets.data_dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
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
