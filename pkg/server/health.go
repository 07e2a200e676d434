package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server/framework"
)

const HealthOK = "OK"

type GetHealthCheckResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health is a simple handler that always responds with a 200 OK
func Health(c *gin.Context) error {
	framework.Respond(c, GetHealthCheckResponse{Status: HealthOK, Service: config.Name(), Version: config.Version()}, http.StatusOK)
	return nil
}
