package framework

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetParam is a utility to get a path parameter from context, nil if not found
func GetParam(c *gin.Context, param string) *string {
	got := c.Param(param)
	if got == "" {
		return nil
	}
	return &got
}

// GetCatchAllParam returns a `*param` path parameter without the leading slash gin keeps on it.
func GetCatchAllParam(c *gin.Context, param string) string {
	return strings.TrimPrefix(c.Param(param), "/")
}

// GetQueryValue is a utility to get a parameter value from the query string, nil if not found
func GetQueryValue(c *gin.Context, param string) *string {
	v, ok := c.GetQuery(param)
	if !ok {
		return nil
	}
	return &v
}
