package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondProblem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Run("Should write a problem document with code and detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		RespondProblemWithCode(c, http.StatusServiceUnavailable, ErrNotReadyCode, "wait")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Service Unavailable", body["error"])
		assert.Equal(t, ErrNotReadyCode, body["code"])
		assert.Equal(t, "wait", body["details"])
		assert.True(t, c.IsAborted())
	})
	t.Run("Should default to internal server error", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		RespondProblem(c, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
