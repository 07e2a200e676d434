package middleware

import (
	"expvar"
	"runtime"
	"strconv"

	"github.com/gin-gonic/gin"
)

// m holds the resolver's process counters, published on /debug/vars
var m = struct {
	goroutines *expvar.Int
	requests   *expvar.Int
	failures   *expvar.Int
	statuses   *expvar.Map
}{
	goroutines: expvar.NewInt("goroutines"),
	requests:   expvar.NewInt("requests"),
	failures:   expvar.NewInt("failed_resolutions"),
	statuses:   expvar.NewMap("responses_by_status"),
}

// Metrics counts requests by response status. Any 4xx or 5xx answer counts as a failed resolution.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		m.requests.Add(1)
		// sampled every 100 requests
		if m.requests.Value()%100 == 0 {
			m.goroutines.Set(int64(runtime.NumGoroutine()))
		}

		status := c.Writer.Status()
		m.statuses.Add(strconv.Itoa(status), 1)
		if status >= 400 || len(c.Errors) > 0 {
			m.failures.Add(1)
		}
	}
}
