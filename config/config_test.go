package config

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.EventCacheTTL)
	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, 5, cfg.Notify.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Notify.InitialBackoff)
	assert.Equal(t, "noop", cfg.Email.Provider)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "/tmp/events.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NOTIFY_WORKERS", "4")
	t.Setenv("NOTIFY_INITIAL_BACKOFF", "250ms")
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("EMAIL_FROM_ADDRESS", "events@school.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/events.db", cfg.SQLitePath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.InitialBackoff)
	assert.Equal(t, "eu-central-1", cfg.Email.AWSRegion)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo", "JWT_SECRET": "x"}},
		{"missing secret in production", map[string]string{"STORAGE_DRIVER": "memory"}},
		{"zero workers", map[string]string{"JWT_SECRET": "x", "NOTIFY_WORKERS": "0"}},
		{"ses without region", map[string]string{"JWT_SECRET": "x", "EMAIL_PROVIDER": "ses"}},
		{"bad duration", map[string]string{"JWT_SECRET": "x", "EVENT_CACHE_TTL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "production")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "schoolevents", line["service"])

	buf.Reset()
	newLogger(&buf, "development", "debug").Debug("dev")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.True(t, newLogger(&buf, "", "").Enabled(context.Background(), slog.LevelInfo))
}
