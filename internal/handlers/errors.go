package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/apperrors"
	"github.com/chachabrian/rideshare-backend/internal/logger"
)

// respondError writes err as {"error", "details"}. Internal causes are
// logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	if apperrors.KindOf(err) == apperrors.Internal {
		logger.FromContext(c.Request.Context(), nil).Error("request failed", zap.Error(err))
	}

	msg, details := apperrors.Public(err)
	body := gin.H{"error": msg}
	if len(details) > 0 {
		body["details"] = details
	}
	c.JSON(status, body)
}

// bindJSON decodes the body into dst and reports malformed input as a
// validation error.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.Invalid("Invalid request body", apperrors.Detail{Field: "body", Message: err.Error()}))
		return false
	}
	return true
}
