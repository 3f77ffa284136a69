package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/bassista/go_relboard/internal/storage"
	"github.com/gin-gonic/gin"
)

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrRepositoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrRemoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrSerializerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		// The write was still queued when the request deadline passed.
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeStoreError answers with the mapped status and attaches err to the
// context for the error reporting middleware.
func writeStoreError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithComponent("api").Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
