package appstate

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/generate"
	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/status"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/engine/watermark"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// MessageLog answers whether a message id was already ingested.
type MessageLog interface {
	Seen(ctx context.Context, id corpus.MessageID) (bool, error)
}

// BaseDeps are the pipeline components the HTTP handlers operate on.
type BaseDeps struct {
	Ingestor   *trainer.Ingestor
	Generator  *generate.Service
	Watermarks watermark.Store
	Codec      model.Codec
	// Messages is optional; without it live ingest does not deduplicate.
	Messages MessageLog
	// Slot is optional; it exposes the latest status line.
	Slot *status.Slot
}

type State struct {
	BaseDeps
	StartedAt time.Time
}

func NewState(deps BaseDeps) (*State, error) {
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.Watermarks == nil {
		deps.Watermarks = watermark.NewMemory()
	}
	if deps.Codec == nil {
		if codec, ok := deps.Ingestor.Registry().Provider().(model.Codec); ok {
			deps.Codec = codec
		}
	}
	return &State{BaseDeps: deps, StartedAt: time.Now()}, nil
}

// Registry returns the scope registry behind the ingestor.
func (s *State) Registry() *trainer.Registry {
	return s.Ingestor.Registry()
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
