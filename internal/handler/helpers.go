package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/middleware"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
	"github.com/xxxsen/reframe/internal/pkg/response"
)

const maxBodyBytes = 1 << 20

// bindJSON decodes the request body into dst with a body size cap.
func bindJSON(c *gin.Context, dst interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := c.GetString(middleware.ContextRequestIDKey)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
	switch {
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, appErr.ErrTooLarge), errors.Is(err, appErr.ErrSchema):
		logger.Debug("bad request", zap.Error(err))
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, "not found")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, appErr.ErrModelUnavailable):
		logger.Error("model unavailable", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "model unavailable")
	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
