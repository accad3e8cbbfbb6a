package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/cyp0633/caldavquery/server/storage/memory"
	"github.com/cyp0633/caldavquery/server/storage/query"
	"github.com/cyp0633/caldavquery/server/storage/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment variables prefixed with "CALDAVQUERY_" override settings, e.g. "CALDAVQUERY_DB"
const envVarPrefix = "caldavquery"

const (
	driverSQLite = "sqlite"
	driverMemory = "memory"
)

// Config is the merged flag, environment and config file settings.
type Config struct {
	DB       string `mapstructure:"db" validate:"required_if=Driver sqlite"`
	Driver   string `mapstructure:"driver" validate:"oneof=sqlite memory"`
	Entity   string `mapstructure:"entity" validate:"required"`
	LogLevel string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	Addr     string `mapstructure:"addr"`
	BaseURI  string `mapstructure:"base-uri" validate:"omitempty,startswith=/"`
}

var validate = validator.New()

// loadConfig reads v into a validated Config.
func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Driver = strings.ToLower(cfg.Driver)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Logger builds the slog logger writing to stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Translator returns a translator emitting the configured entity name.
func (c *Config) Translator() *query.Translator {
	return query.NewTranslator(query.WithEntity(c.Entity))
}

// OpenStore opens the configured backend. The returned close function is never nil.
func (c *Config) OpenStore(ctx context.Context, logger *slog.Logger) (storage.Store, func() error, error) {
	switch c.Driver {
	case driverMemory:
		return memory.New(memory.WithLogger(logger)), func() error { return nil }, nil
	default:
		s, err := sqlite.Open(ctx, c.DB, sqlite.WithLogger(logger))
		if err != nil {
			return nil, func() error { return nil }, err
		}
		return s, s.Close, nil
	}
}
