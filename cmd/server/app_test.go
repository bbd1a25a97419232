package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/activity-logger/internal/config"
	"github.com/phrazzld/activity-logger/internal/platform/database"
	"github.com/phrazzld/activity-logger/internal/platform/logger"
)

// newTestApp builds an application backed by an in-memory SQLite database
// and a debug logger writing to a buffer.
func newTestApp(t *testing.T) (*application, *logger.TestLogBuffer) {
	t.Helper()

	log, buf := logger.GetTestLogger(t)
	db, err := database.Open(context.Background(), "sqlite://", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		API: config.APIConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			CORSOrigins: config.DefaultCORSOrigins,
		},
		Database: config.DatabaseConfig{URL: "sqlite://"},
		Log:      config.LogConfig{Level: "DEBUG", Format: "json"},
	}
	return newApplication(cfg, log, db), buf
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	router := app.setupRouter()

	testCases := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"root", "/", http.StatusOK, `{"message":"Personal Activity Logger API","version":"0.1.0"}`},
		{"health", "/api/health", http.StatusOK, `{"status":"healthy","service":"backend"}`},
		{"ready", "/api/health/ready", http.StatusOK, `{"status":"ready","database":"ok"}`},
		{"unknown", "/api/nope", http.StatusNotFound, `{"error":"not found","trace_id":"__any__"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, router, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			traceID := w.Header().Get("X-Trace-ID")
			assert.NotEmpty(t, traceID)
			assert.JSONEq(t, strings.ReplaceAll(tc.body, "__any__", traceID), w.Body.String())
		})
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	app, _ := newTestApp(t)

	w := serve(t, app.setupRouter(), httptest.NewRequest(http.MethodPost, "/api/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "method not allowed")
}

func TestRouterReadyWithoutDatabase(t *testing.T) {
	app, _ := newTestApp(t)
	app.db = nil

	w := serve(t, app.setupRouter(), httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouterCORS(t *testing.T) {
	app, _ := newTestApp(t)
	router := app.setupRouter()

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "X-Custom-Header")

		w := serve(t, router, req)

		assert.Less(t, w.Code, 300)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("simple request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:8000")

		w := serve(t, router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:8000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		w := serve(t, router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRouterLogsRequests(t *testing.T) {
	app, buf := newTestApp(t)

	w := serve(t, app.setupRouter(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	traceID := w.Header().Get("X-Trace-ID")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)

	var completed map[string]interface{}
	for _, e := range entries {
		if e["message"] == "request completed" {
			completed = e
		}
	}
	require.NotNil(t, completed, "expected a request completed entry in:\n%s", buf.String())
	assert.Equal(t, "INFO", completed["level"])
	assert.Equal(t, traceID, completed["trace_id"])
	assert.NotEmpty(t, completed["request_id"])
	assert.Equal(t, "/api/health", completed["path"])
	assert.Equal(t, float64(http.StatusOK), completed["status"])
	assert.Equal(t, "middleware", completed["module"])
	function, _ := completed["function"].(string)
	assert.True(t, strings.HasPrefix(function, "NewTraceMiddleware.func"), "function: %q", function)
}

func TestRouterMetrics(t *testing.T) {
	app, _ := newTestApp(t)
	router := app.setupRouter()

	serve(t, router, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	serve(t, router, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))

	w := serve(t, router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `activity_logger_http_requests_total{method="GET",path="/api/health",status="200"} 1`)
	assert.Contains(t, body, `activity_logger_http_requests_total{method="GET",path="unmatched",status="404"} 1`)
	assert.Contains(t, body, `go_sql_max_open_connections{db_name="activity_logger"}`)
	assert.NotContains(t, body, `path="/metrics"`)
}

// restoreDefaultLogger undoes the logger installed by initializeApp.
func restoreDefaultLogger(t *testing.T) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

// silenceStdout keeps startup log lines out of the test output.
func silenceStdout(t *testing.T) {
	t.Helper()
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	original := os.Stdout
	os.Stdout = devNull
	t.Cleanup(func() {
		os.Stdout = original
		_ = devNull.Close()
	})
}

func TestInitializeApp(t *testing.T) {
	restoreDefaultLogger(t)
	for _, name := range []string{"API_HOST", "API_PORT", "API_CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(name, "")
	}
	dbPath := filepath.Join(t.TempDir(), "data", "app.db")
	t.Setenv("DATABASE_URL", "sqlite:///"+dbPath)

	silenceStdout(t)

	app, err := initializeApp(context.Background(), "", testFlags(t, "--log-level=warning"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	assert.Equal(t, "warning", app.config.Log.Level)
	assert.Same(t, app.logger, slog.Default())
	assert.False(t, app.logger.Enabled(context.Background(), slog.LevelInfo))
	assert.FileExists(t, dbPath)
}

func TestInitializeAppInvalidLevel(t *testing.T) {
	restoreDefaultLogger(t)
	t.Setenv("LOG_LEVEL", "bogus")
	t.Setenv("DATABASE_URL", "sqlite://")

	before := slog.Default()
	app, err := initializeApp(context.Background(), "", testFlags(t))

	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "failed to load configuration")
	assert.Same(t, before, slog.Default(), "no sink may be installed on failure")
}

func TestInitializeAppUnsupportedDatabase(t *testing.T) {
	restoreDefaultLogger(t)
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("DATABASE_URL", "mysql://root@localhost/app")

	silenceStdout(t)

	_, err := initializeApp(context.Background(), "", testFlags(t))

	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrUnsupportedScheme)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunServesUntilCanceled(t *testing.T) {
	app, buf := newTestApp(t)
	app.config.API.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	url := fmt.Sprintf("http://%s/api/health", app.config.API.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
	logger.AssertLogContains(t, buf, "Server shutdown completed")
}

func TestRunReportsListenFailure(t *testing.T) {
	app, _ := newTestApp(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	app.config.API.Port = l.Addr().(*net.TCPAddr).Port

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}
