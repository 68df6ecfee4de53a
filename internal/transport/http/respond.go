package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/store"
)

// writeError maps the core's error taxonomy onto HTTP statuses. The core
// never sees this layer; it only returns typed failures.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	var ruleErr *domain.RuleError
	var stateErr *domain.StateError
	var permErr *domain.PermissionError

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case errors.As(err, &ruleErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": ruleErr.Reason})
	case errors.As(err, &stateErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": stateErr.Error()})
	case errors.As(err, &permErr):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": permErr.Reason})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflicting booking"})
	default:
		log.Error("request failed", slog.Any("err", err), slog.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
}
