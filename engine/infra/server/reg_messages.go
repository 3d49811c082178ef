package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/infra/server/middleware/size"
	"github.com/senvr/senvr/engine/infra/server/router"
	"github.com/senvr/senvr/pkg/logger"
)

type messageRequest struct {
	ID      string `json:"id"`
	Channel string `json:"channel" binding:"required"`
	Author  string `json:"author"  binding:"required"`
	Content string `json:"content" binding:"required"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Accepted  bool   `json:"accepted"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Queued    int    `json:"queued"`
}

// ingestHandler feeds one live message through the same path crawlers use.
func ingestHandler(c *gin.Context, maxBody int64) {
	state, ok := stateFrom(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if size.TooLarge(err) {
			size.RespondTooLarge(c, maxBody)
			return
		}
		router.RespondProblemWithCode(c, http.StatusBadRequest, router.ErrBadRequestCode, err.Error())
		return
	}
	if req.ID == "" {
		req.ID = ksuid.New().String()
	}
	ctx := c.Request.Context()
	unit := corpus.TextUnit{
		ID:      corpus.MessageID(req.ID),
		Channel: corpus.ChannelID(req.Channel),
		Author:  corpus.AuthorID(req.Author),
		Content: req.Content,
	}
	if state.Messages != nil {
		seen, err := state.Messages.Seen(ctx, unit.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to check message record", "message", unit.ID, "error", err)
		}
		if seen {
			router.RespondOK(c, "Duplicate", messageResponse{ID: req.ID, Duplicate: true})
			return
		}
	}
	accepted, err := state.Ingestor.Accept(ctx, unit)
	switch {
	case errors.Is(err, corpus.ErrBufferClosed):
		router.RespondProblemWithCode(c, http.StatusServiceUnavailable, router.ErrServiceUnavailableCode, err.Error())
		return
	case err != nil && !accepted:
		router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, err.Error())
		return
	case err != nil:
		logger.FromContext(ctx).Warn("Training cycle failed after ingest", "message", unit.ID, "error", err)
	}
	resp := messageResponse{ID: req.ID, Accepted: accepted}
	if accepted {
		scope := state.Registry().Select(unit)
		resp.Scope = scope.Name
		resp.Queued = scope.Buffer.Size()
	}
	router.RespondOK(c, "Success", resp)
}
