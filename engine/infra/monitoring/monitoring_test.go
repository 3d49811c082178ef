package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept the default config", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
	t.Run("Should reject invalid paths", func(t *testing.T) {
		cases := map[string]string{
			"":             "cannot be empty",
			"metrics":      "must start with '/'",
			"/api/metrics": "cannot be under /api/",
			"/metrics?x=1": "cannot contain query parameters",
		}
		for path, msg := range cases {
			err := (&Config{Enabled: true, Path: path}).Validate()
			require.Error(t, err, path)
			assert.Contains(t, err.Error(), msg)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("Should create a disabled service when no config is given", func(t *testing.T) {
		service, err := New(t.Context(), nil)
		require.NoError(t, err)
		assert.False(t, service.Enabled())
		assert.NotNil(t, service.Meter())
		assert.NoError(t, service.Shutdown(t.Context()))
	})
	t.Run("Should fail with invalid config", func(t *testing.T) {
		service, err := New(t.Context(), &Config{Enabled: true})
		assert.Error(t, err)
		assert.Nil(t, service)
	})
	t.Run("Should start the Prometheus exporter when enabled", func(t *testing.T) {
		service, err := New(t.Context(), &Config{Enabled: true, Path: "/metrics"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = service.Shutdown(t.Context()) })
		assert.True(t, service.Enabled())
		assert.NoError(t, service.Err())
	})
}

func TestNewWithFallback(t *testing.T) {
	t.Run("Should degrade to a disabled service on invalid config", func(t *testing.T) {
		service := NewWithFallback(t.Context(), &Config{Enabled: true, Path: "bad"})
		require.NotNil(t, service)
		assert.False(t, service.Enabled())
		assert.Error(t, service.Err())
		assert.NotNil(t, service.Meter())
	})
}

func TestService_Mount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Run("Should mount nothing when disabled", func(t *testing.T) {
		service, err := New(t.Context(), DefaultConfig())
		require.NoError(t, err)
		router := gin.New()
		service.Mount(t.Context(), router)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = httptest.NewRecorder()
		service.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
	t.Run("Should expose custom and system metrics", func(t *testing.T) {
		service, err := New(t.Context(), &Config{Enabled: true, Path: "/metrics"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = service.Shutdown(t.Context()) })
		counter, err := service.Meter().Int64Counter("senvr_test_units_total", metric.WithDescription("test"))
		require.NoError(t, err)
		counter.Add(t.Context(), 3)

		router := gin.New()
		service.Mount(t.Context(), router)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "senvr_test_units_total")
		assert.Contains(t, body, "senvr_uptime_seconds")
		assert.Contains(t, body, "senvr_build_info")
	})
}
