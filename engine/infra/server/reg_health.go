package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/infra/server/router"
)

const (
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

type scopeStatus struct {
	Name       string  `json:"name"`
	Ready      bool    `json:"ready"`
	Generation uint64  `json:"generation"`
	Units      uint64  `json:"units"`
	Cycles     uint64  `json:"cycles"`
	Rate       float64 `json:"rate"`
	Buffered   int     `json:"buffered"`
}

type statusResponse struct {
	Mode   string        `json:"mode"`
	Rate   float64       `json:"rate"`
	Total  uint64        `json:"total"`
	Status string        `json:"status,omitempty"`
	Uptime string        `json:"uptime"`
	Scopes []scopeStatus `json:"scopes"`
}

// statusHandler reports throughput per scope and the latest status line.
func statusHandler(c *gin.Context) {
	state, ok := stateFrom(c)
	if !ok {
		return
	}
	registry := state.Registry()
	resp := statusResponse{
		Mode:   string(registry.Mode()),
		Uptime: time.Since(state.StartedAt).Round(time.Second).String(),
	}
	for _, scope := range registry.Scopes() {
		counters := scope.Coordinator.Counters()
		resp.Rate += counters.Rate
		resp.Total += counters.Total
		resp.Scopes = append(resp.Scopes, scopeStatus{
			Name:       scope.Name,
			Ready:      scope.Store.Ready(),
			Generation: scope.Store.Generation(),
			Units:      counters.Total,
			Cycles:     counters.Cycles,
			Rate:       counters.Rate,
			Buffered:   scope.Buffer.Size(),
		})
	}
	if state.Slot != nil {
		if text, ok := state.Slot.Peek(); ok {
			resp.Status = text
		}
	}
	router.RespondOK(c, "Success", resp)
}

// healthHandler is ready once any scope can serve generation.
func healthHandler(c *gin.Context) {
	state, ok := stateFrom(c)
	if !ok {
		return
	}
	ready := state.Registry().AnyReady()
	health := statusReady
	code := http.StatusOK
	if !ready {
		health = statusNotReady
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"data": gin.H{
			"status": health,
			"ready":  ready,
		},
		"message": "Success",
	})
}
