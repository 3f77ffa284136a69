package middleware

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// notifyFunc has the signature of honeybadger.Notify.
type notifyFunc func(err interface{}, extra ...interface{}) (string, error)

// HoneybadgerMiddleware reports panics and failed responses to Honeybadger
// when HONEYBADGER_API_KEY is set, and passes requests through otherwise.
func HoneybadgerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		logger.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("GO_ENV"),
	})
	logger.Info("Honeybadger error reporting is enabled.")
	return reportFailures(logger, honeybadger.Notify)
}

// reportFailures sends one notice per reported response. The last error a
// handler attached with c.Error is the notice error; without one the notice
// carries the status line. Panics are reported and re-raised for gin.Recovery.
func reportFailures(logger *logrus.Logger, notify notifyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				_, _ = notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
				logger.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		tags, ok := noticeTags(status)
		if !ok {
			return
		}

		var cause interface{} = fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path)
		if last := c.Errors.Last(); last != nil {
			cause = last.Err
		}
		extra := []interface{}{
			honeybadger.Context{"method": c.Request.Method, "path": c.Request.URL.Path, "status": status},
			tags,
		}
		if status >= http.StatusInternalServerError {
			extra = append(extra, c.Request)
		}
		_, _ = notify(cause, extra...)
		logger.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
	}
}

// noticeTags returns the tags for a response status, or false when the
// status is not reported.
func noticeTags(status int) (honeybadger.Tags, bool) {
	switch {
	case status < http.StatusBadRequest, status == http.StatusNotFound:
		return nil, false
	case status == http.StatusBadGateway:
		return honeybadger.Tags{"store", "http"}, true
	case status == http.StatusGatewayTimeout:
		return honeybadger.Tags{"timeout", "http"}, true
	case status >= http.StatusInternalServerError:
		return honeybadger.Tags{"5XX", "http"}, true
	default:
		return honeybadger.Tags{"4XX", "http"}, true
	}
}
