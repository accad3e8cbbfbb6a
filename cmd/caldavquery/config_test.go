package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyp0633/caldavquery/server/storage/memory"
	"github.com/cyp0633/caldavquery/server/storage/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
	}{
		{
			name:   "sqlite",
			values: map[string]any{"driver": "sqlite", "db": "x.db", "entity": "Item", "log-level": "info"},
		},
		{
			name:   "memory without db",
			values: map[string]any{"driver": "MEMORY", "entity": "Item", "log-level": "DEBUG"},
		},
		{
			name:    "sqlite without db",
			values:  map[string]any{"driver": "sqlite", "entity": "Item", "log-level": "info"},
			wantErr: "DB",
		},
		{
			name:    "unknown driver",
			values:  map[string]any{"driver": "postgres", "db": "x", "entity": "Item", "log-level": "info"},
			wantErr: "Driver",
		},
		{
			name:    "missing entity",
			values:  map[string]any{"driver": "memory", "log-level": "info"},
			wantErr: "Entity",
		},
		{
			name:    "bad log level",
			values:  map[string]any{"driver": "memory", "entity": "Item", "log-level": "loud"},
			wantErr: "LogLevel",
		},
		{
			name:    "relative base uri",
			values:  map[string]any{"driver": "memory", "entity": "Item", "log-level": "info", "base-uri": "dav"},
			wantErr: "BaseURI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			cfg, err := loadConfig(v)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, "invalid configuration")
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(cfg.Driver), cfg.Driver)
			assert.Equal(t, strings.ToLower(cfg.LogLevel), cfg.LogLevel)
		})
	}
}

func TestConfig_Logger(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	logger := cfg.Logger()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestConfig_OpenStore(t *testing.T) {
	logger := (&Config{LogLevel: "error"}).Logger()

	store, closeStore, err := (&Config{Driver: driverMemory}).OpenStore(context.Background(), logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	assert.NoError(t, closeStore())

	db := filepath.Join(t.TempDir(), "test.db")
	store, closeStore, err = (&Config{Driver: driverSQLite, DB: db}).OpenStore(context.Background(), logger)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	assert.NoError(t, closeStore())
}

func TestRootCmd_ConfigSources(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "report.xml", calendarQuery(`<C:comp-filter name="VTODO"/>`))

	cfgFile := writeFile(t, dir, "caldavquery.yaml", "driver: memory\nentity: FileItem\n")
	out, err := run(t, "translate", report, "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "select i from FileItem i")

	// flags win over the config file
	out, err = run(t, "translate", report, "-c", cfgFile, "--entity", "FlagItem")
	require.NoError(t, err)
	assert.Contains(t, out, "select i from FlagItem i")

	t.Setenv("CALDAVQUERY_ENTITY", "EnvItem")
	out, err = run(t, "translate", report, "--driver", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "select i from EnvItem i")

	t.Setenv("CALDAVQUERY_LOG_LEVEL", "chatty")
	_, err = run(t, "translate", report, "--driver", "memory")
	assert.ErrorContains(t, err, "LogLevel")

	_, err = run(t, "translate", report, "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
