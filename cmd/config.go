package cmd

import (
	"context"
	"fmt"
	"strings"

	"db-migrate/internal/dbconn"
	"db-migrate/internal/dialect"
	"db-migrate/internal/engine"

	"github.com/spf13/viper"
)

func defaultSettings() engine.Settings { return engine.DefaultSettings() }

// fileConfig mirrors db-migrate.yaml. Unmarshal goes through AllSettings,
// so environment overrides of nested keys are applied.
type fileConfig struct {
	Source   dbconn.Endpoint `mapstructure:"source"`
	Target   dbconn.Endpoint `mapstructure:"target"`
	Settings engine.Settings `mapstructure:"settings"`
}

func readConfig(v *viper.Viper) (fileConfig, error) {
	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// loadEndpoint reads the source or target section.
func loadEndpoint(v *viper.Viper, key string) (dbconn.Endpoint, error) {
	cfg, err := readConfig(v)
	if err != nil {
		return dbconn.Endpoint{}, err
	}
	var ep dbconn.Endpoint
	switch key {
	case "source":
		ep = cfg.Source
	case "target":
		ep = cfg.Target
	default:
		return ep, fmt.Errorf("unknown endpoint %q", key)
	}
	if ep.Name == "" {
		ep.Name = key
	}
	if ep.Driver == "" {
		return ep, fmt.Errorf("%s.driver is required (via config or DBMIGRATE_%s_DRIVER)", key, strings.ToUpper(key))
	}
	return ep, nil
}

// loadSettings reads the settings section.
func loadSettings(v *viper.Viper) (engine.Settings, error) {
	cfg, err := readConfig(v)
	if err != nil {
		return engine.Settings{}, err
	}
	s := cfg.Settings
	if s.BatchSize <= 0 {
		return s, fmt.Errorf("settings.batch_size must be positive, got %d", s.BatchSize)
	}
	return s, nil
}

// openDatabase connects to ep and resolves its dialect.
func openDatabase(ctx context.Context, ep dbconn.Endpoint) (engine.Database, error) {
	db, err := dbconn.Open(ctx, ep)
	if err != nil {
		return engine.Database{}, err
	}
	return engine.Database{DB: db, Dialect: dialect.GetDialect(ep.DriverName())}, nil
}
