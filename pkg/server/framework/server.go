// Package framework is a minimal web framework on top of gin.
package framework

import (
	"net/http"
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbd54566975/did-resolution-conformance/config"
)

type contextKey string

const (
	TraceIDKey       contextKey = "traceID"
	ShutdownErrorKey contextKey = "shutdownError"

	serviceName string = "did-reference-resolver"
)

func (c contextKey) String() string {
	return string(c)
}

// Server is the entrypoint into our application and what configures our context object for each of our http router.
type Server struct {
	*http.Server
	router   *gin.Engine
	tracer   trace.Tracer
	shutdown chan os.Signal
}

// Handler answers one request. A returned error is answered with RespondError.
type Handler func(c *gin.Context) error

// NewHTTPServer creates a Server that handles a set of routes for the application.
func NewHTTPServer(cfg config.ServerConfig, handler *gin.Engine, shutdown chan os.Signal) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              cfg.APIHost,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		router:   handler,
		tracer:   otel.Tracer(serviceName),
		shutdown: shutdown,
	}
}

// Router exposes the engine so tests can serve it without a listener.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handle sets a handler function for a given HTTP method and path pair
// to the server mux.
func (s *Server) Handle(method string, path string, handler Handler, middleware ...gin.HandlerFunc) {
	h := func(c *gin.Context) {
		r := c.Request

		ctx, span := s.tracer.Start(r.Context(), path)
		defer span.End()
		c.Set(TraceIDKey.String(), span.SpanContext().TraceID().String())
		c.Request = r.WithContext(ctx)
		span.SetAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.String("url", r.URL.String()),
			attribute.String("accept", r.Header.Get("Accept")),
			attribute.String("user-agent", r.UserAgent()),
		)

		if err := handler(c); err != nil {
			// recorded for the errors middleware
			_ = c.Error(err)
			if IsShutdown(err) {
				logrus.WithError(err).Errorf("unsafe error, shutting down")
				s.SignalShutdown()
				return
			}
			RespondError(c, err)
		}
	}

	handlers := append(gin.HandlersChain{}, middleware...)
	s.router.Handle(method, path, append(handlers, h)...)
}

// SignalShutdown is used to gracefully shut down the server when an integrity issue is identified.
func (s *Server) SignalShutdown() {
	if s.shutdown == nil {
		return
	}
	s.shutdown <- syscall.SIGTERM
}
