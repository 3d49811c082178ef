package config

import "context"

type ContextKey string

const configCtxKey ContextKey = "config"

// ContextWithConfig stores cfg in ctx.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configCtxKey, cfg)
}

// FromContext returns the configuration stored in ctx or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, ok := ctx.Value(configCtxKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}
