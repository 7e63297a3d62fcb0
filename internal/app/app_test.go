package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsation/eventfin/internal/observability"
	"github.com/salsation/eventfin/jobs"
)

func TestLoadConfigRequiresWarehouseDSN(t *testing.T) {
	t.Setenv("WAREHOUSE_DSN", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WAREHOUSE_DSN", "mysql://report:pw@localhost:3306/orders")
	t.Setenv("REPORT_CACHE_TTL", "90s")

	cfg, err := LoadConfig("testdata-missing.env")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 90*time.Second, cfg.ReportCacheTTL)
	assert.Equal(t, 30, cfg.ReportRateLimit)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, "0 3 * * *", cfg.ReferenceBumpCron)
	assert.False(t, cfg.SplitSaveLock)
	assert.False(t, cfg.IsProduction())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewLoggerJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.Int64("prod_id", 42))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"prod_id":42`)
}

func TestRuntimeTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestRouterHealthz(t *testing.T) {
	cfg := &Config{AppEnv: "development"}
	router := NewRouter(RouterParams{
		Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Config:  cfg,
		Metrics: observability.NewMetrics(),
		Health: map[string]HealthChecker{
			"postgres": func(*http.Request) error { return nil },
		},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])

	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(metrics.Body.String(), `eventfin_http_requests_total{code="200",route="/healthz"} 1`))
}

func TestRouterHealthzDegraded(t *testing.T) {
	router := NewRouter(RouterParams{
		Config: &Config{},
		Health: map[string]HealthChecker{
			"redis": func(*http.Request) error { return errors.New("connection refused") },
		},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "degraded")
}

func TestRouterMountsJobsHealth(t *testing.T) {
	router := NewRouter(RouterParams{
		Config:     &Config{},
		JobHandler: jobs.NewHandler(nil, nil),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"settlement"`)
}
