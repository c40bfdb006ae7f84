package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderTraceID = "X-Trace-Id"
	traceIDKey    = "trace_id"
)

// TraceID returns Gin middleware that propagates or creates a trace id.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDKey, traceID)
		c.Writer.Header().Set(HeaderTraceID, traceID)
		c.Next()
	}
}

// GetTraceID returns the trace id of the request, or "" outside TraceID.
func GetTraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
