package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/export"
	"github.com/senvr/senvr/engine/infra/server/appstate"
	"github.com/senvr/senvr/engine/infra/server/router"
	"github.com/senvr/senvr/engine/trainer"
	"github.com/senvr/senvr/pkg/logger"
)

// exportHandler streams a snapshot of one scope. Query: scope (default global),
// indent (bool).
func exportHandler(c *gin.Context) {
	state, ok := stateFrom(c)
	if !ok {
		return
	}
	if state.Codec == nil {
		router.RespondProblemWithCode(
			c,
			http.StatusNotImplemented,
			router.ErrInternalCode,
			"model provider cannot serialize models",
		)
		return
	}
	scope, found := resolveScope(state, c.DefaultQuery("scope", trainer.GlobalScope))
	if !found {
		router.RespondProblemWithCode(c, http.StatusNotFound, router.ErrNotFoundCode, "unknown scope")
		return
	}
	indent, err := strconv.ParseBool(c.DefaultQuery("indent", "false"))
	if err != nil {
		router.RespondProblemWithCode(c, http.StatusBadRequest, router.ErrBadRequestCode, "indent must be a boolean")
		return
	}
	ctx := c.Request.Context()
	snap, err := export.Take(ctx, scope, state.Watermarks, state.Codec)
	if err != nil {
		router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, err.Error())
		return
	}
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, snap, indent); err != nil {
		logger.FromContext(ctx).Error("Failed to write snapshot", "scope", scope.Name, "error", err)
	}
}

func resolveScope(state *appstate.State, name string) (*trainer.Scope, bool) {
	return state.Registry().Lookup(name)
}
