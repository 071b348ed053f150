package tracing

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
)

// maxTraceIDLen bounds client supplied ids before they reach the logs.
const maxTraceIDLen = 128

// HTTPMiddleware creates Gin middleware that assigns trace ids and logs
// each request.
func HTTPMiddleware(logger *logging.Logger) gin.HandlerFunc {
	log := logging.OrNop(logger).Named("http")

	return func(c *gin.Context) {
		id := TraceID(c.GetHeader(Header))
		if id == "" || len(id) > maxTraceIDLen {
			id = NewTraceID()
		}
		c.Request = c.Request.WithContext(WithTraceID(c.Request.Context(), id))
		c.Header(Header, string(id))

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("trace_id", string(id)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
