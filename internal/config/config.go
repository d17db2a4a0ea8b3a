// Package config loads the application configuration with viper from a
// YAML file, environment variables, or both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	User        string      `mapstructure:"user"`
	WorkoutsDir string      `mapstructure:"workouts_dir"`
	Store       StoreConfig `mapstructure:"store"`
	Voice       VoiceConfig `mapstructure:"voice"`
	Log         LogConfig   `mapstructure:"log"`
}

// StoreConfig selects and parameterizes the session store backend.
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	DSN           string `mapstructure:"dsn"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type VoiceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Command string `mapstructure:"command"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DataDir is where the app keeps its own files: the default sqlite
// store, logs, and UI preferences.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lifttrack"
	}
	return filepath.Join(home, ".lifttrack")
}

// Load reads configuration from configFile when given, otherwise from a
// config.yaml in the working directory or the data dir. A missing config
// file is fine, defaults and LIFTTRACK_* environment variables apply
// either way.
func Load(configFile string) (Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
	}

	v.SetEnvPrefix("lifttrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dataDir := DataDir()
	v.SetDefault("user", "local")
	v.SetDefault("workouts_dir", "workouts")
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", filepath.Join(dataDir, "sessions.db"))
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.migrations_dir", "migrations")
	v.SetDefault("voice.enabled", false)
	v.SetDefault("voice.command", "")
	v.SetDefault("log.file", filepath.Join(dataDir, "lifttrack.log"))
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
