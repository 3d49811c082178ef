package monitoring

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/senvr/senvr/engine/infra/monitoring/metrics"
	"github.com/senvr/senvr/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Build variables to be set via ldflags during compilation
// Example: go build -ldflags "-X 'github.com/senvr/senvr/engine/infra/monitoring.Version=v1.0.0'"
var (
	Version    = "unknown"
	CommitHash = "unknown"
)

type systemMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// getBuildInfo returns build information with fallback strategies
func getBuildInfo() (version, commit, goVersion string) {
	version = Version
	commit = CommitHash
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		if commit == "unknown" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}
	return version, commit, runtime.Version()
}

// initSystemMetrics registers the uptime gauge and records build info.
func initSystemMetrics(ctx context.Context, meter metric.Meter) *systemMetrics {
	log := logger.FromContext(ctx)
	sys := &systemMetrics{startTime: time.Now()}
	buildInfo, err := meter.Float64Gauge(
		metrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
	} else {
		version, commit, goVersion := getBuildInfo()
		buildInfo.Record(ctx, 1,
			metric.WithAttributes(
				attribute.String("version", version),
				attribute.String("commit_hash", commit),
				attribute.String("go_version", goVersion),
			),
		)
		log.Info("System metrics initialized", "version", version, "commit", commit, "go_version", goVersion)
	}
	uptime, err := meter.Float64ObservableGauge(
		metrics.MetricName("uptime_seconds"),
		metric.WithDescription("Service uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Error("Failed to create uptime gauge", "error", err)
		return sys
	}
	sys.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(uptime, time.Since(sys.startTime).Seconds())
		return nil
	}, uptime)
	if err != nil {
		log.Error("Failed to register uptime callback", "error", err)
	}
	return sys
}

func (s *systemMetrics) close(ctx context.Context) {
	if s == nil || s.registration == nil {
		return
	}
	if err := s.registration.Unregister(); err != nil {
		logger.FromContext(ctx).Error("Failed to unregister uptime callback", "error", err)
	}
	s.registration = nil
}
