package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/pkg/server/framework"
)

// Errors logs errors coming out of the call stack. Safe errors were already answered to the requester; anything
// else is logged as unexpected.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		errs := c.Errors.ByType(gin.ErrorTypeAny)
		if len(errs) == 0 {
			return
		}
		traceID := c.GetString(framework.TraceIDKey.String())
		for _, e := range errs {
			entry := logrus.WithError(e.Err).WithFields(logrus.Fields{
				"trace_id": traceID,
				"path":     c.Request.URL.Path,
			})
			if _, safe := framework.AsSafeError(e.Err); safe {
				entry.Debug("request rejected")
				continue
			}
			entry.Error("unexpected request error")
		}
	}
}
