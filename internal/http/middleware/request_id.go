package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/common/id"
	"basegraph.app/meetrelay/common/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's request id or mints one, echoes it in
// the response and attaches it to the request's log fields.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			var err error
			requestID, err = id.Short("req_")
			if err != nil {
				slog.WarnContext(c.Request.Context(), "failed to generate request id", "error", err)
			}
		}

		if requestID != "" {
			c.Header(RequestIDHeader, requestID)
			ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RequestID: &requestID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
