// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Session   SessionConfig   `toml:"session"`
	Simulator SimulatorConfig `toml:"simulator"`
	Service   ServiceConfig   `toml:"service"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// SessionConfig maps login gate settings.
type SessionConfig struct {
	AccessCode *string   `toml:"access-code"`
	TTL        *Duration `toml:"ttl"`
}

// SimulatorConfig maps simulator settings.
type SimulatorConfig struct {
	Scoring *string `toml:"scoring"`
	Seed    *int64  `toml:"seed"`
}

// ServiceConfig maps the scoring service client settings.
type ServiceConfig struct {
	URL     *string   `toml:"url"`
	Timeout *Duration `toml:"timeout"`
}

// ServerConfig maps settings of the bundled scoring service.
type ServerConfig struct {
	Addr *string `toml:"addr"`
	DB   *string `toml:"db"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
