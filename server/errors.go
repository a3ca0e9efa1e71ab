package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
)

const errInvalidBody = "invalid request body"

func handleError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, &core.InvalidArgumentsError{}):
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
	case errors.Is(err, &core.UnauthorizedError{}):
		c.JSON(http.StatusUnauthorized, gin.H{"errors": err.Error()})
	case errors.Is(err, &core.NotFoundError{}):
		c.JSON(http.StatusNotFound, gin.H{"errors": err.Error()})
	case errors.Is(err, &core.DuplicateNicknameError{}):
		c.JSON(http.StatusConflict, gin.H{"errors": err.Error()})
	case errors.Is(err, &core.CooldownError{}):
		c.JSON(http.StatusTooManyRequests, gin.H{"errors": err.Error()})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"errors": "internal server error"})
	}
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"errors": what + " is not configured"})
}
