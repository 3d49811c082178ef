package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Run("Should record totals and duration with the route template", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
		router := gin.New()
		router.Use(HTTPMetrics(t.Context(), meter))
		router.GET("/api/v0/speak/:author", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("author"))
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/speak/ana", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)

		got := collect(t, reader)
		total, ok := got["senvr_http_requests_total"]
		require.True(t, ok)
		sum, ok := total.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)
		path, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("path"))
		assert.Equal(t, "/api/v0/speak/:author", path.AsString())
		_, ok = got["senvr_http_request_duration_seconds"]
		assert.True(t, ok)
	})
	t.Run("Should label unknown routes as unmatched", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
		router := gin.New()
		router.Use(HTTPMetrics(t.Context(), meter))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)

		sum, ok := collect(t, reader)["senvr_http_requests_total"].Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		path, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("path"))
		assert.Equal(t, "unmatched", path.AsString())
		status, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("status_code"))
		assert.Equal(t, "404", status.AsString())
	})
	t.Run("Should pass through when meter is nil", func(t *testing.T) {
		router := gin.New()
		router.Use(HTTPMetrics(t.Context(), nil))
		router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", http.NoBody))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
