package main

import (
	"context"
	"expvar"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/internal/setup"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server"
)

const serviceName = "did-reference-resolver"

func main() {
	logrus.Info("Starting up...")

	if err := run(); err != nil {
		logrus.Fatalf("main: error: %s", err.Error())
	}
}

// startup and shutdown logic
func run() error {
	cfg, err := config.LoadConfig(setup.ConfigPath())
	if err != nil {
		return errors.Wrap(err, "could not instantiate config")
	}
	if cfg == nil {
		return nil
	}

	if logFile := setup.ConfigureLogger(serviceName, cfg.Server.LogLevel, cfg.Server.LogLocation); logFile != nil {
		defer func(logFile *os.File) {
			if err = logFile.Close(); err != nil {
				logrus.WithError(err).Error("failed to close log file")
			}
		}(logFile)
	}

	var tp *sdktrace.TracerProvider
	if cfg.Harness.JaegerEnabled {
		if tp, err = setup.NewTracerProvider(cfg.Harness.JaegerHost, serviceName, cfg.Version.SVN); err != nil {
			logrus.WithError(err).Error("could not instantiate tracer provider")
		}
	}

	expvar.NewString("build").Set(cfg.Version.SVN)

	logrus.Infof("main: Started : Reference resolver initializing : version %q", cfg.Version.SVN)
	defer logrus.Info("main: Completed")

	out, err := conf.String(&cfg.Server)
	if err != nil {
		return errors.Wrap(err, "serializing config")
	}
	logrus.Infof("main: Config: \n%v\n", out)

	// buffer of 1 so additional ctrl+c spamming is ignored
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	resolverServer, err := server.NewResolverServer(shutdown, cfg.Server)
	if err != nil {
		return errors.Wrap(err, "could not start http services")
	}

	serverErrors := make(chan error, 1)
	go func() {
		logrus.Infof("main: server started and listening on -> %s", resolverServer.Server.Addr)
		serverErrors <- resolverServer.ListenAndServe()
	}()

	select {
	case err = <-serverErrors:
		return errors.Wrap(err, "server error")
	case sig := <-shutdown:
		logrus.Infof("main: shutdown signal received -> %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if tp != nil {
			if err = tp.Shutdown(ctx); err != nil {
				logrus.Errorf("main: failed to shutdown tracer: %s", err)
			}
		}

		if err = resolverServer.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("main: failed to stop server gracefully, forcing shutdown")
			if err = resolverServer.Close(); err != nil {
				logrus.WithError(err).Error("main: failed to close server")
			}
		}
	}

	return nil
}
