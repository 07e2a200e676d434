package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/internal/util"
)

// Logger logs request info after a handler runs, in the form
//
//	(StatusCode) HTTPMethod Path -> IPAddr (latency)
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    util.SanitizeLog(c.Request.URL.RequestURI()),
			"client":  c.ClientIP(),
			"latency": time.Since(start).String(),
			"accept":  util.SanitizeLog(c.GetHeader("Accept")),
		}).Info("request completed")
	}
}
