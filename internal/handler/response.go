// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/service"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

func respondError(c *gin.Context, status int, message string, details []string) {
	c.JSON(status, models.ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// handleError maps service and store errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	log := logger.Named("http")

	var (
		valErr  *service.ValidationError
		procErr *service.ProcessingError
	)

	switch {
	case errors.As(err, &valErr):
		log.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, valErr.Message, valErr.Details)
	case store.IsNotFound(err):
		respondError(c, http.StatusNotFound, "snapshot not found", nil)
	case errors.Is(err, service.ErrVideoSourceUnavailable):
		respondError(c, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.As(err, &procErr):
		log.Error("Processing error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, procErr.Message, nil)
	default:
		log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, "An unexpected error occurred", nil)
	}
}
