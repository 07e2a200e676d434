package framework

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// Respond converts a Go value to JSON and sends it to the client.
func Respond(c *gin.Context, data any, statusCode int) {
	RespondAs(c, data, statusCode, gin.MIMEJSON)
}

// RespondAs sends data as JSON under the given Content-Type. An empty contentType sends no Content-Type header at all.
func RespondAs(c *gin.Context, data any, statusCode int, contentType string) {
	if statusCode == http.StatusNoContent || data == nil {
		c.Status(statusCode)
		if contentType != "" {
			c.Header("Content-Type", contentType)
		}
		c.Writer.WriteHeaderNow()
		return
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		logrus.WithError(err).Error("could not marshal response")
		c.Status(http.StatusInternalServerError)
		return
	}
	if contentType == "" {
		// a nil value stops net/http from sniffing one
		c.Writer.Header()["Content-Type"] = nil
		c.Status(statusCode)
		_, _ = c.Writer.Write(body)
		return
	}
	c.Data(statusCode, contentType, body)
}

// RespondError sends an error response back to the client. If the error is a `SafeError`,
// the error message and fields are sent back to the client. If the error is not a
// `SafeError`, a generic error message is sent back to the client.
func RespondError(c *gin.Context, err error) {
	if webErr, ok := AsSafeError(err); ok {
		er := ErrorResponse{
			Error:  webErr.Err.Error(),
			Fields: webErr.Fields,
		}
		Respond(c, er, webErr.StatusCode)
		return
	}

	// if the error isn't a `SafeError`, it's not safe to send back the error
	// message as is because it may contain sensitive data. Send back a generic
	// 500.
	er := ErrorResponse{
		Error: http.StatusText(http.StatusInternalServerError),
	}
	Respond(c, er, http.StatusInternalServerError)
}

// Redirect answers 303 See Other with a Location header and an empty body.
func Redirect(c *gin.Context, location string) {
	c.Header("Location", location)
	c.Status(http.StatusSeeOther)
	c.Writer.WriteHeaderNow()
}
