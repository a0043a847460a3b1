// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the server configuration from flags, environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted for the storage and session settings.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the fully resolved server configuration.
type Config struct {
	// Address is the listen address of the HTTP server.
	Address string `mapstructure:"address"`

	// Issuer is the iss claim of issued ID tokens.
	Issuer string `mapstructure:"issuer"`

	// LoginURL is where unauthenticated users are redirected.
	LoginURL string `mapstructure:"login_url"`

	// SeedFile optionally points at a YAML file with providers,
	// applications and flows to load at startup.
	SeedFile string `mapstructure:"seed_file"`

	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`

	// Keys maps signing key names to PEM file paths. Empty means an
	// ephemeral development key.
	Keys map[string]string `mapstructure:"keys"`
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the SQLite database file, for the sqlite backend.
	Path string `mapstructure:"path"`
}

// SessionConfig selects and parameterizes the session backend.
type SessionConfig struct {
	Backend string `mapstructure:"backend"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisUsername string        `mapstructure:"redis_username"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// setDefaults registers the default values on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":9000")
	v.SetDefault("issuer", "http://localhost:9000")
	v.SetDefault("login_url", "/login")
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.path", "lantern.db")
	v.SetDefault("session.backend", BackendMemory)
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.ttl", 24*time.Hour)
}

// Load resolves the configuration. The optional file path is read when
// non-empty; environment variables use the LANTERN_ prefix with dots mapped
// to underscores (for example LANTERN_STORAGE_BACKEND).
func Load(file string) (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)
	v.SetEnvPrefix("LANTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Session.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Issuer == "" {
		return fmt.Errorf("issuer must not be empty")
	}
	return nil
}
