package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/infra/server/appstate"
	"github.com/senvr/senvr/engine/infra/server/middleware/size"
	"github.com/senvr/senvr/engine/infra/server/router"
	"github.com/senvr/senvr/engine/infra/server/routes"
)

// RegisterRoutes mounts the versioned API on r.
func RegisterRoutes(r *gin.Engine, maxBody int64) {
	api := r.Group(routes.Base())
	api.GET("/speak", speakHandler)
	api.GET("/speak/:author", speakAuthorHandler)
	ingest := api.Group("/messages")
	ingest.Use(size.MaxBody(maxBody))
	ingest.POST("", func(c *gin.Context) { ingestHandler(c, maxBody) })
	api.GET("/export", exportHandler)
	api.GET("/status", statusHandler)
	api.GET("/health", healthHandler)
}

func stateFrom(c *gin.Context) (*appstate.State, bool) {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		router.RespondProblemWithCode(
			c,
			http.StatusInternalServerError,
			router.ErrInternalCode,
			router.ErrMsgAppStateNotInitialized,
		)
		return nil, false
	}
	return state, true
}
