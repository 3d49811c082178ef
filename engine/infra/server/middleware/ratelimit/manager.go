package ratelimit

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/senvr/senvr/pkg/logger"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel/metric"
)

const globalRoute = "global"

type routeLimiter struct {
	prefix  string
	limiter *limiter.Limiter
}

// Manager holds one limiter per configured route plus the global fallback.
type Manager struct {
	config  *Config
	global  *limiter.Limiter
	routes  []routeLimiter
	metrics *blockMetrics
}

// Option customizes a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	meter metric.Meter
}

// WithMeter records blocked requests on meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *managerOptions) {
		o.meter = meter
	}
}

// NewManager builds the limiters. A nil client keeps counters in process memory;
// otherwise they live in redis and are shared across instances.
func NewManager(cfg *Config, client redis.UniversalClient, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}
	store, err := newStore(cfg, client)
	if err != nil {
		return nil, err
	}
	metrics, err := newBlockMetrics(o.meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit metrics: %w", err)
	}
	m := &Manager{
		config:  cfg,
		global:  limiter.New(store, cfg.GlobalRate.ToLimiterRate()),
		metrics: metrics,
	}
	for prefix, rate := range cfg.RouteRates {
		rl := routeLimiter{prefix: prefix}
		if !rate.Disabled {
			rl.limiter = limiter.New(store, rate.ToLimiterRate())
		}
		m.routes = append(m.routes, rl)
	}
	sort.Slice(m.routes, func(i, j int) bool {
		return len(m.routes[i].prefix) > len(m.routes[j].prefix)
	})
	return m, nil
}

func newStore(cfg *Config, client redis.UniversalClient) (limiter.Store, error) {
	storeOpts := limiter.StoreOptions{
		Prefix:          cfg.Prefix,
		MaxRetry:        cfg.MaxRetry,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if client == nil {
		return memory.NewStoreWithOptions(storeOpts), nil
	}
	store, err := sredis.NewStoreWithOptions(client, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return store, nil
}

func (m *Manager) excluded(path string) bool {
	for _, p := range m.config.ExcludedPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// limiterFor returns the longest matching route limiter. A nil limiter means the
// route is explicitly unlimited.
func (m *Manager) limiterFor(path string) (string, *limiter.Limiter) {
	for _, rl := range m.routes {
		if strings.HasPrefix(path, rl.prefix) {
			return rl.prefix, rl.limiter
		}
	}
	if m.config.GlobalRate.Disabled {
		return globalRoute, nil
	}
	return globalRoute, m.global
}

// Middleware limits requests per client IP and route.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if m.excluded(path) {
			c.Next()
			return
		}
		route, lim := m.limiterFor(path)
		if lim == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		lctx, err := lim.Get(ctx, route+":"+c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("Rate limiter unavailable, allowing request", "route", route, "error", err)
			c.Next()
			return
		}
		if !m.config.DisableHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		}
		if lctx.Reached {
			m.metrics.blocked(ctx, route)
			retryAfter := max(time.Until(time.Unix(lctx.Reset, 0)).Round(time.Second), time.Second)
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": fmt.Sprintf("limit of %d requests reached, retry later", lctx.Limit),
			})
			return
		}
		c.Next()
	}
}
