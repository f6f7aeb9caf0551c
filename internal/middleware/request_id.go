package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderRequestID        = "X-Request-Id"
	ContextRequestIDKey    = "request_id"
	maxIncomingRequestIDSz = 64
)

// RequestID tags every request with an id, reusing a sane incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if reqID == "" || len(reqID) > maxIncomingRequestIDSz {
			reqID = newRequestID()
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
	}
}

// RequestIDOf returns the id set by RequestID, empty when the middleware did not run.
func RequestIDOf(c *gin.Context) string {
	return c.GetString(ContextRequestIDKey)
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
