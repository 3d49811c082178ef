package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/senvr/senvr/engine/infra/monitoring/middleware"
	"github.com/senvr/senvr/pkg/logger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "senvr"

// Service owns the meter every senvr component records on. When disabled, or when
// the exporter failed to start, the meter is a no-op and nothing is mounted.
type Service struct {
	cfg      *Config
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prom.Registry
	system   *systemMetrics
	err      error
}

func disabled(cfg *Config, err error) *Service {
	return &Service{
		cfg:   cfg,
		meter: noop.NewMeterProvider().Meter(meterName),
		err:   err,
	}
}

// New starts a Prometheus-backed meter when cfg enables monitoring. A nil cfg is the
// disabled default.
func New(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	if !cfg.Enabled {
		log.Debug("Monitoring disabled")
		return disabled(cfg, nil), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	svc := &Service{
		cfg:      cfg,
		meter:    meter,
		provider: provider,
		registry: registry,
		system:   initSystemMetrics(ctx, meter),
	}
	log.Info("Monitoring enabled", "path", cfg.Path)
	return svc, nil
}

// NewWithFallback is New, logging a startup failure and returning a disabled service
// instead. Training and generation never stop because metrics are unavailable.
func NewWithFallback(ctx context.Context, cfg *Config) *Service {
	svc, err := New(ctx, cfg)
	if err == nil {
		return svc
	}
	logger.FromContext(ctx).Error("Failed to start monitoring, continuing without metrics", "error", err)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return disabled(cfg, err)
}

func (s *Service) Meter() metric.Meter {
	return s.meter
}

// Enabled reports whether metrics are being exported.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// Err returns the startup failure of a fallback service.
func (s *Service) Err() error {
	return s.err
}

// Mount records HTTP metrics for every route of r and serves the exporter on the
// configured path. It does nothing on a disabled service.
func (s *Service) Mount(ctx context.Context, r *gin.Engine) {
	if !s.Enabled() {
		return
	}
	r.Use(middleware.HTTPMetrics(ctx, s.meter))
	r.GET(s.cfg.Path, gin.WrapH(s.Handler()))
}

// Handler serves the Prometheus exposition, or 503 on a disabled service.
func (s *Service) Handler() http.Handler {
	if !s.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "monitoring disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Shutdown stops the system gauges and flushes the meter provider.
func (s *Service) Shutdown(ctx context.Context) error {
	s.system.close(ctx)
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}
