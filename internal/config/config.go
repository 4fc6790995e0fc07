// Package config loads backend configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Data   DataConfig
	Server ServerConfig
	Sync   SyncConfig
	Log    LogConfig
}

// DataConfig holds local storage settings.
type DataConfig struct {
	Dir string
}

// ServerConfig holds the remote API settings.
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout time.Duration
}

// SyncConfig holds sync engine and scheduler settings.
type SyncConfig struct {
	Interval       time.Duration
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix TINDAPOS_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("data.dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "tindapos"))
	v.SetDefault("server.base_url", "http://localhost:4000/api")
	v.SetDefault("server.timeout", 15*time.Second)
	v.SetDefault("sync.interval", 15*time.Minute)
	v.SetDefault("sync.probe_interval", 10*time.Second)
	v.SetDefault("sync.reconnect_delay", 3*time.Second)
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("TINDAPOS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "tindapos"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TINDAPOS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
