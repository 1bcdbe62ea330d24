// Package config loads vizier configuration from files and environment.
// Precedence, highest first: CLI flags (applied by the cli package), VZ_*
// environment variables, config file, built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds every recognized option. It is constructed once at startup;
// the engine never re-reads configuration mid-stream.
type Config struct {
	IntervalMS     int    `mapstructure:"interval_ms"`
	Diff           bool   `mapstructure:"diff"`
	Pretty         bool   `mapstructure:"pretty"`
	NoPublicIP     bool   `mapstructure:"no_public_ip"`
	AllConnections bool   `mapstructure:"all_connections"`
	WatchPath      string `mapstructure:"watch_path"`
	Verbose        bool   `mapstructure:"verbose"`
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		IntervalMS: 1000,
	}
}

// Load reads the first config file found and applies env overrides.
// Config file search order (highest precedence first):
//  1. ./.vizier.yaml or ./.vizier.yml
//  2. ~/.vizier.yaml or ~/.vizier.yml
//  3. $XDG_CONFIG_HOME/vizier/config.yaml (or ~/.config/vizier/config.yaml)
//  4. /etc/vizier/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	if configFile := findConfigFile(); configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func findConfigFile() string {
	names := []string{".vizier.yaml", ".vizier.yml", "vizier.yaml", "vizier.yml"}

	var searchPaths []string
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "vizier"))
	}
	searchPaths = append(searchPaths, "/etc/vizier")

	for _, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VZ_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.IntervalMS = ms
		}
	}
	if v := os.Getenv("VZ_WATCH_PATH"); v != "" {
		cfg.WatchPath = v
	}
	if envBool("VZ_DIFF") {
		cfg.Diff = true
	}
	if envBool("VZ_PRETTY") {
		cfg.Pretty = true
	}
	if envBool("VZ_NO_PUBLIC_IP") {
		cfg.NoPublicIP = true
	}
	if envBool("VZ_ALL_CONNECTIONS") {
		cfg.AllConnections = true
	}
	if envBool("VZ_VERBOSE") {
		cfg.Verbose = true
	}
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}
