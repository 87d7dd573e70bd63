package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lastRecord struct {
	rec slog.Record
}

func (l *lastRecord) Enabled(context.Context, slog.Level) bool { return true }

func (l *lastRecord) Handle(_ context.Context, r slog.Record) error {
	l.rec = r.Clone()
	return nil
}

func (l *lastRecord) WithAttrs([]slog.Attr) slog.Handler { return l }

func (l *lastRecord) WithGroup(string) slog.Handler { return l }

func (l *lastRecord) attrs() map[string]slog.Value {
	out := map[string]slog.Value{}
	l.rec.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value
		return true
	})
	return out
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLevel slog.Level
	}{
		{"created", http.StatusCreated, `{"data":{}}`, slog.LevelInfo},
		{"implicit ok", 0, "[]", slog.LevelInfo},
		{"capacity exceeded", http.StatusConflict, "", slog.LevelWarn},
		{"storage unavailable", http.StatusServiceUnavailable, "", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink lastRecord
			handler := LoggingMiddleware(slog.New(&sink), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/registrations", nil))

			require.Equal(t, "request", sink.rec.Message)
			assert.Equal(t, tt.wantLevel, sink.rec.Level)
			attrs := sink.attrs()
			wantStatus := tt.status
			if wantStatus == 0 {
				wantStatus = http.StatusOK
			}
			assert.Equal(t, int64(wantStatus), attrs["status"].Int64())
			assert.Equal(t, int64(len(tt.body)), attrs["bytes"].Int64())
			assert.Equal(t, "/registrations", attrs["path"].String())
			assert.Equal(t, http.MethodPost, attrs["method"].String())
			assert.Contains(t, attrs, "duration_ms")
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	var sink lastRecord
	handler := LoggingMiddleware(slog.New(&sink), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := rr.Header().Get(RequestIDHeader)
	require.NoError(t, uuid.Validate(generated))
	assert.Equal(t, generated, sink.attrs()["request_id"].String())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "trace-42", rr.Header().Get(RequestIDHeader))
	assert.Equal(t, "trace-42", sink.attrs()["request_id"].String())
}
