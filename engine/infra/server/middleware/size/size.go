// Package size caps the request body accepted by the message intake routes.
package size

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/senvr/senvr/engine/infra/server/router"
)

// MaxBody rejects requests that declare a body over limit bytes with 413 and caps the
// body of the rest, so a chunked upload stops being read at the limit. A non-positive
// limit disables the check.
func MaxBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			RespondTooLarge(c, limit)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// TooLarge reports whether err came from reading past the MaxBody cap.
func TooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// RespondTooLarge aborts c with the 413 problem response.
func RespondTooLarge(c *gin.Context, limit int64) {
	router.RespondProblemWithCode(
		c,
		http.StatusRequestEntityTooLarge,
		router.ErrPayloadTooLargeCode,
		fmt.Sprintf("message body exceeds %d bytes", limit),
	)
}
