// Package config loads the planner server configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Server modes.
const (
	ModeMCP  = "mcp"
	ModeHTTP = "http"
)

// State backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Catalog sources.
const (
	SourceDB    = "db"
	SourceFiles = "files"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig selects the transport and configures the HTTP server.
type ServerConfig struct {
	Mode            string        `mapstructure:"mode" validate:"oneof=mcp http"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// StateConfig selects where ownership and task records are kept.
type StateConfig struct {
	Backend   string `mapstructure:"backend" validate:"oneof=sqlite redis"`
	RedisURL  string `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// CatalogConfig selects where the catalog is read from.
type CatalogConfig struct {
	Source           string `mapstructure:"source" validate:"oneof=db files"`
	ItemsFile        string `mapstructure:"items_file" validate:"required_if=Source files"`
	LocationsFile    string `mapstructure:"locations_file"`
	TasksFile        string `mapstructure:"tasks_file"`
	TaskDefaultsFile string `mapstructure:"task_defaults_file"`
}

// PlannerConfig holds the farming planner weights.
type PlannerConfig struct {
	TargetWeight     int `mapstructure:"target_weight" validate:"min=1"`
	NormalWeight     int `mapstructure:"normal_weight" validate:"min=1"`
	IncidentalRarity int `mapstructure:"incidental_rarity" validate:"min=1,max=6"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel maps the configured level to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from path, or from planner.yaml in the usual
// places when path is empty, then applies PLANNER_* environment variables.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("planner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", ModeMCP)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.path", "planner.db")

	v.SetDefault("state.backend", BackendSQLite)
	v.SetDefault("state.redis_url", "")
	v.SetDefault("state.key_prefix", "")

	v.SetDefault("catalog.source", SourceDB)
	v.SetDefault("catalog.items_file", "")
	v.SetDefault("catalog.locations_file", "")
	v.SetDefault("catalog.tasks_file", "")
	v.SetDefault("catalog.task_defaults_file", "")

	v.SetDefault("planner.target_weight", 5)
	v.SetDefault("planner.normal_weight", 1)
	v.SetDefault("planner.incidental_rarity", 6)

	v.SetDefault("logging.level", "info")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
