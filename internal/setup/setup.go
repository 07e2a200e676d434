// Package setup holds the process wiring shared by the commands: logging and tracing.
package setup

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/tbd54566975/did-resolution-conformance/config"
)

// NewTracerProvider returns an OpenTelemetry TracerProvider that exports to the Jaeger collector at jaegerHost
// and registers it globally, so the harness and server spans are picked up without further wiring.
func NewTracerProvider(jaegerHost, serviceName, version string) (*sdktrace.TracerProvider, error) {
	if jaegerHost == "" {
		return nil, errors.New("no jaeger host provided")
	}
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerHost)))
	if err != nil {
		return nil, errors.Wrap(err, "creating jaeger exporter")
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

// ConfigureLogger sets the level and output of the standard logrus logger. When location is set, logs are also
// written to a file there; the returned file should be closed on exit.
func ConfigureLogger(name, level, location string) *os.File {
	if level != "" {
		logLevel, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.WithError(err).Errorf("could not parse log level<%s>, setting to info", level)
			logrus.SetLevel(logrus.InfoLevel)
		} else {
			logrus.SetLevel(logLevel)
		}
	}

	logrus.SetFormatter(&logrus.JSONFormatter{
		DisableTimestamp: false,
		PrettyPrint:      true,
	})
	logrus.SetReportCaller(true)

	logrus.SetOutput(os.Stdout)
	if location == "" {
		return nil
	}
	now := time.Now()
	logFile := location + "/" + name + "-" + now.Format(time.DateOnly) + "-" + strconv.FormatInt(now.Unix(), 10) + ".log"
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logrus.WithError(err).Warn("failed to create logs file, using default stdout")
		return nil
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, file))
	return file
}

// ConfigPath returns the config path from the environment, or the default.
func ConfigPath() string {
	if envConfigPath, present := os.LookupEnv(config.ConfigPath.String()); present {
		logrus.Infof("loading config from env var path: %s", envConfigPath)
		return envConfigPath
	}
	return config.DefaultConfigPath
}
