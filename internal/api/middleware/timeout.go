package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestTimeout gives every request a deadline of d. Handlers and the store
// writes they queue see it through the request context: a write still
// waiting in the queue when the deadline passes is skipped. A handler that
// gives up without answering gets a 504. Non-positive d disables the deadline.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		start := time.Now()
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		log := logger.WithComponent("http").WithField("elapsed", time.Since(start).Round(time.Millisecond))
		if c.Writer.Written() {
			log.Warnf("%s %s answered %d past its %v deadline", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), d)
			return
		}
		log.Warnf("%s %s exceeded %v without answering", c.Request.Method, c.Request.URL.Path, d)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "request timeout"})
	}
}
