package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/logger"
	"github.com/stemsi/gateprep-backend/internal/response"
)

// RequestLogger writes one structured access log line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = logger.Component(log, "http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := log.Info()
		switch {
		case status >= 500:
			evt = log.Error()
		case status >= 400:
			evt = log.Warn()
		}

		evt = evt.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", response.RequestID(c))

		if claims := GetClaims(c); claims != nil {
			evt = evt.Int64("user_id", claims.UserID)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Msg("request")
	}
}
