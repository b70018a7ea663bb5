package ui

import (
	"net/http"
	"strconv"

	"talentbridge/domain/core"
	apperrors "talentbridge/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps the error taxonomy onto HTTP statuses and emits a uniform
// error body.
func (s *Server) writeError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeValidationError, apperrors.CodeConfigInvalid:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeConflict, apperrors.CodeInvalidTransition:
		status = http.StatusConflict
	case apperrors.CodeTransientCollaborator:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}

// actorFrom reads the operator identity header. Missing attribution falls
// back to the system actor.
func actorFrom(c *gin.Context) core.Actor {
	return core.Actor(c.GetHeader("X-Operator")).OrSystem()
}

// maxPageLimit caps listing page sizes across the admin surface.
const maxPageLimit = 200

// pageParams reads limit/offset query parameters. Oversized limits are
// clamped to the maximum rather than silently reset.
func pageParams(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
