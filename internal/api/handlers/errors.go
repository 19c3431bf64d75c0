package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/melody-api/internal/generator"
	"github.com/Conceptual-Machines/melody-api/internal/logger"
	"github.com/Conceptual-Machines/melody-api/internal/orchestrator"
	"github.com/Conceptual-Machines/melody-api/internal/primer"
	"github.com/Conceptual-Machines/melody-api/internal/store"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	var lengthErr *window.InvalidLengthError
	var tempoErr *orchestrator.MultipleTempoError

	switch {
	case errors.As(err, &lengthErr),
		errors.As(err, &tempoErr),
		errors.Is(err, window.ErrInvalidInput),
		errors.Is(err, generator.ErrInvalidOptions),
		errors.Is(err, primer.ErrUnsupportedPrimer),
		errors.Is(err, primer.ErrInvalidPrimer):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrUnknownGenerator),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Server errors are logged
// and reported to Sentry.
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, logger.WithContext(c))
	}
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	})
}
