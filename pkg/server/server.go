// Package server is a reference DID resolver implementing the HTTP(S) binding. It is the fixture the conformance
// harness is tested against and a demo target for it.
package server

import (
	"expvar"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server/framework"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server/middleware"
)

const (
	HealthPrefix  = "/health"
	MetricsPrefix = "/debug/vars"
	DIDParam      = "did"
	otelComponent = "did-reference-resolver"
)

// ResolverServer exposes all dependencies needed to run the reference resolver over http.
type ResolverServer struct {
	*config.ServerConfig
	*framework.Server
	Resolver *Resolver
	Registry *Registry
	// KeyDID is the did:key generated at startup.
	KeyDID string
}

// NewResolverServer seeds the registry and registers the binding routes under the configured base path.
func NewResolverServer(shutdown chan os.Signal, cfg config.ServerConfig, opts ...Option) (*ResolverServer, error) {
	registry, keyDID, err := SeededRegistry()
	if err != nil {
		return nil, errors.Wrap(err, "seeding registry")
	}
	opts = append([]Option{WithRepresentationFallback(cfg.RepresentationFallback)}, opts...)
	resolver := NewResolver(registry, opts...)

	engine := setUpEngine()
	httpServer := framework.NewHTTPServer(cfg, engine, shutdown)

	httpServer.Handle(http.MethodGet, HealthPrefix, Health)
	httpServer.Handle(http.MethodGet, path.Join("/", cfg.BasePath, "*"+DIDParam), ResolveHandler(resolver))

	logrus.WithFields(logrus.Fields{
		"base_path": cfg.BasePath,
		"did_key":   keyDID,
	}).Info("reference resolver ready")

	return &ResolverServer{
		ServerConfig: &cfg,
		Server:       httpServer,
		Resolver:     resolver,
		Registry:     registry,
		KeyDID:       keyDID,
	}, nil
}

// setUpEngine creates the gin engine and sets up the middleware
func setUpEngine() *gin.Engine {
	middlewares := gin.HandlersChain{
		gin.Recovery(),
		otelgin.Middleware(otelComponent),
		middleware.Errors(),
		middleware.Logger(logrus.StandardLogger()),
		middleware.Metrics(),
		middleware.CORS(),
	}

	engine := gin.New()
	engine.Use(middlewares...)
	engine.GET(MetricsPrefix, gin.WrapH(expvar.Handler()))
	return engine
}

// ResolveHandler answers `GET {base}/{did}` per the HTTP(S) binding.
func ResolveHandler(resolver *Resolver) framework.Handler {
	return func(c *gin.Context) error {
		answer := resolver.Answer(Request{
			Input:   framework.GetCatchAllParam(c, DIDParam),
			Options: c.Request.URL.Query(),
			Accept:  c.GetHeader("Accept"),
		})

		if answer.Location != "" {
			c.Header("Location", answer.Location)
		}
		if answer.Status == http.StatusSeeOther && answer.Body == nil {
			framework.Redirect(c, answer.Location)
			return nil
		}
		framework.RespondAs(c, answer.Body, answer.Status, answer.ContentType)
		return nil
	}
}
