// Package config loads seedarr configuration from flags, the environment,
// .env files and ~/.seedarr.yaml.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seedarr/seedarr/pkg/constants"
	"github.com/seedarr/seedarr/pkg/errors"
)

// Engines that serve can drive.
const (
	EngineSim = "sim"
)

// Config holds the effective configuration.
type Config struct {
	// Global flags
	Verbose bool   `json:"-" yaml:"-"`
	Quiet   bool   `json:"-" yaml:"-"`
	NoColor bool   `json:"-" yaml:"-"`
	Format  string `json:"-" yaml:"-"`

	// Config file
	ConfigFile string `json:"config_file,omitempty" yaml:"config_file,omitempty"`

	// Logging configuration
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
	LogOutput string `json:"log_output" yaml:"log_output"`

	// Daemon configuration
	Engine             string        `json:"engine" yaml:"engine"`
	Host               string        `json:"host" yaml:"host"`
	Port               int           `json:"port" yaml:"port"`
	SavePath           string        `json:"save_path" yaml:"save_path"`
	PollActiveInterval time.Duration `json:"poll_active_interval" yaml:"poll_active_interval"`
	PollIdleInterval   time.Duration `json:"poll_idle_interval" yaml:"poll_idle_interval"`
	PendingTTL         time.Duration `json:"pending_ttl" yaml:"pending_ttl"`
	MetadataTimeout    time.Duration `json:"metadata_timeout" yaml:"metadata_timeout"`
	Workers            int           `json:"workers" yaml:"workers"`
	BusCapacity        int           `json:"bus_capacity" yaml:"bus_capacity"`

	// Client configuration
	ServerURL string `json:"server_url" yaml:"server_url"`
	APIKey    string `json:"-" yaml:"-"`
}

// defaults are applied below every other source.
var defaults = map[string]any{
	"log_level":            "",
	"log_format":           "auto",
	"log_output":           "stderr",
	"engine":               EngineSim,
	"host":                 "localhost",
	"port":                 8420,
	"save_path":            "./downloads",
	"poll_active_interval": constants.PollActiveInterval,
	"poll_idle_interval":   constants.PollIdleInterval,
	"pending_ttl":          constants.PendingTTL,
	"metadata_timeout":     constants.MetadataTimeout,
	"workers":              constants.DefaultWorkers,
	"bus_capacity":         0,
	"server_url":           "http://localhost:8420",
	"api_key":              "",
}

// Load loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later with UpdateFromFlags)
//  2. Environment variables (SEEDARR_*)
//  3. .env files
//  4. Config file (configFile, or ~/.seedarr.yaml)
//  5. Defaults
func Load(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file must exist; the search path is optional.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	}

	cfg := &Config{
		ConfigFile:         v.ConfigFileUsed(),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		LogOutput:          v.GetString("log_output"),
		Engine:             v.GetString("engine"),
		Host:               v.GetString("host"),
		Port:               v.GetInt("port"),
		SavePath:           v.GetString("save_path"),
		PollActiveInterval: v.GetDuration("poll_active_interval"),
		PollIdleInterval:   v.GetDuration("poll_idle_interval"),
		PendingTTL:         v.GetDuration("pending_ttl"),
		MetadataTimeout:    v.GetDuration("metadata_timeout"),
		Workers:            v.GetInt("workers"),
		BusCapacity:        v.GetInt("bus_capacity"),
		ServerURL:          v.GetString("server_url"),
		APIKey:             v.GetString("api_key"),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Engine != EngineSim:
		return errors.NewValidationError("engine", c.Engine, "supported engines: "+EngineSim)
	case c.Port <= 0 || c.Port > 65535:
		return errors.NewValidationError("port", c.Port, "must be between 1 and 65535")
	case c.PollActiveInterval <= 0:
		return errors.NewValidationError("poll_active_interval", c.PollActiveInterval, "must be positive")
	case c.PollIdleInterval <= 0:
		return errors.NewValidationError("poll_idle_interval", c.PollIdleInterval, "must be positive")
	case c.PendingTTL <= 0:
		return errors.NewValidationError("pending_ttl", c.PendingTTL, "must be positive")
	case c.MetadataTimeout <= 0:
		return errors.NewValidationError("metadata_timeout", c.MetadataTimeout, "must be positive")
	case c.Workers <= 0:
		return errors.NewValidationError("workers", c.Workers, "must be positive")
	case c.BusCapacity < 0:
		return errors.NewValidationError("bus_capacity", c.BusCapacity, "must not be negative")
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env; neither overrides the real environment.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
