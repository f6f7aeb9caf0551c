package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/supportrag/internal/middleware"
	appErr "github.com/xxxsen/supportrag/internal/pkg/errors"
	"github.com/xxxsen/supportrag/internal/pkg/errcode"
	"github.com/xxxsen/supportrag/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, msg := classify(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.RequestIDOf(c)),
		zap.Int("code", code),
		zap.Error(err),
	)
	if code == errcode.ErrInternal || code == errcode.ErrStore || code == errcode.ErrStoreConnection {
		logger.Error("request failed")
	} else {
		logger.Warn("request rejected")
	}
	response.Error(c, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrIrrelevant):
		return errcode.ErrIrrelevant, "document is not a maintenance or repair manual"
	case errors.Is(err, appErr.ErrInputFormat):
		return errcode.ErrInputFormat, "document could not be parsed"
	case errors.Is(err, appErr.ErrValidation):
		return errcode.ErrValidation, err.Error()
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, "invalid request"
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrUnavailable):
		return errcode.ErrAIUnavailable, "ai provider unavailable"
	case errors.Is(err, appErr.ErrStoreConnection):
		return errcode.ErrStoreConnection, "vector store unreachable"
	case errors.Is(err, appErr.ErrStore):
		return errcode.ErrStore, "vector store failure"
	default:
		return errcode.ErrInternal, "internal error"
	}
}
