package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/generate"
	"github.com/senvr/senvr/engine/infra/server/appstate"
	"github.com/senvr/senvr/engine/infra/server/router"
	"github.com/senvr/senvr/engine/trainer"
)

type speakResponse struct {
	Scope      string `json:"scope"`
	Text       string `json:"text"`
	Generation uint64 `json:"generation"`
}

// speakHandler generates from the global scope.
func speakHandler(c *gin.Context) {
	state, ok := stateFrom(c)
	if !ok {
		return
	}
	registry := state.Registry()
	if registry.Mode() == trainer.ModeAuthor {
		router.RespondProblemWithCode(
			c,
			http.StatusBadRequest,
			router.ErrAuthorRequiredCode,
			"scopes are per author, use /speak/:author",
		)
		return
	}
	speak(c, state, registry.Global())
}

// speakAuthorHandler generates from one author's scope.
func speakAuthorHandler(c *gin.Context) {
	state, ok := stateFrom(c)
	if !ok {
		return
	}
	registry := state.Registry()
	if registry.Mode() != trainer.ModeAuthor {
		router.RespondProblemWithCode(c, http.StatusNotFound, router.ErrNotFoundCode, "per-author scopes are disabled")
		return
	}
	scope, found := registry.LookupAuthor(corpus.AuthorID(c.Param("author")))
	if !found {
		router.RespondProblemWithCode(
			c,
			http.StatusServiceUnavailable,
			router.ErrNotReadyCode,
			generate.NotReadyMessage,
		)
		return
	}
	speak(c, state, scope)
}

func speak(c *gin.Context, state *appstate.State, scope *trainer.Scope) {
	if !scope.Store.Ready() {
		router.RespondProblemWithCode(
			c,
			http.StatusServiceUnavailable,
			router.ErrNotReadyCode,
			generate.NotReadyMessage,
		)
		return
	}
	ctx := c.Request.Context()
	err := state.Generator.Reply(ctx, scope.Store, generate.ReplierFunc(func(_ context.Context, text string) error {
		router.RespondOK(c, "Success", speakResponse{
			Scope:      scope.Name,
			Text:       text,
			Generation: scope.Store.Generation(),
		})
		return nil
	}))
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.Status(http.StatusRequestTimeout)
		c.Abort()
	default:
		router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, err.Error())
	}
}
