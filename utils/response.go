package utils

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
)

// RespondError writes the JSON error body for an error from a service.
// Validation maps to 400, not-found to 404 and everything else to 500.
func RespondError(c *gin.Context, err error) {
	var fe *apperror.FieldError
	switch {
	case errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, gin.H{"error": fe.Error(), "field": fe.Field})
	case errors.Is(err, apperror.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// ParseUUIDParam reads a path parameter as a UUID, answering 400 when it
// is malformed.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
