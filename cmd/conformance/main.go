package main

import (
	"context"
	"expvar"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/internal/setup"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/harness"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/report"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
	"github.com/tbd54566975/did-resolution-conformance/pkg/schema"
	"github.com/tbd54566975/did-resolution-conformance/pkg/storage"
)

var errConformanceFailed = errors.New("one or more implementations failed conformance")

func main() {
	logrus.Info("Starting up...")

	if err := run(); err != nil {
		if errors.Is(err, errConformanceFailed) {
			logrus.Error(err)
			os.Exit(1)
		}
		logrus.Fatalf("main: error: %s", err.Error())
	}
}

// startup, run and report
func run() error {
	cfg, err := config.LoadConfig(setup.ConfigPath())
	if err != nil {
		return errors.Wrap(err, "could not instantiate config")
	}
	if cfg == nil {
		return nil
	}

	if logFile := setup.ConfigureLogger(config.ServiceName, cfg.Harness.LogLevel, cfg.Harness.LogLocation); logFile != nil {
		defer func(logFile *os.File) {
			if err = logFile.Close(); err != nil {
				logrus.WithError(err).Error("failed to close log file")
			}
		}(logFile)
	}

	if cfg.Harness.JaegerEnabled {
		tp, err := setup.NewTracerProvider(cfg.Harness.JaegerHost, config.ServiceName, cfg.Version.SVN)
		if err != nil {
			logrus.WithError(err).Error("could not instantiate tracer provider")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					logrus.Errorf("main: failed to shutdown tracer: %s", err)
				}
			}()
		}
	}

	expvar.NewString("build").Set(cfg.Version.SVN)

	out, err := conf.String(cfg)
	if err != nil {
		return errors.Wrap(err, "serializing config")
	}
	logrus.Debugf("main: Config: \n%v\n", out)

	impls := cfg.Implementations.Match(cfg.Harness.Tags)
	if len(impls) == 0 {
		return errors.Errorf("no implementations match tags %v", cfg.Harness.Tags)
	}

	policy, err := newPolicy(cfg.Harness)
	if err != nil {
		return err
	}
	runner := harness.NewRunner(
		binding.NewClient(cfg.Harness.RequestTimeout),
		oracle.New(*policy),
		harness.WithParallelism(cfg.Harness.Parallelism),
		harness.WithReadinessTimeout(cfg.Harness.ReadinessTimeout),
	)

	// an interrupt stops new scenarios; the ones in flight finish and are reported
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Infof("main: running conformance against %d implementation(s)", len(impls))
	rep := runner.Run(ctx, impls)

	if err = writeReport(rep, cfg.Report); err != nil {
		return err
	}
	if err = persistReport(context.Background(), rep, cfg.Report); err != nil {
		logrus.WithError(err).Error("main: failed to persist report")
	}

	if rep.Failed() {
		return errConformanceFailed
	}
	return nil
}

func newPolicy(cfg config.HarnessConfig) (*oracle.Policy, error) {
	policy := oracle.DefaultPolicy()
	policy.AllowRepresentationFallback = cfg.AllowRepresentationFallback
	policy.RequireTLS = cfg.RequireTLS
	if !cfg.StrictErrorMetadata {
		policy.Strictness = result.LenientMetadata
	}
	if cfg.SchemaValidation {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, errors.Wrap(err, "loading DID document schema")
		}
		policy.Documents = v
	}
	return &policy, nil
}

func writeReport(rep *report.Report, cfg config.ReportConfig) error {
	var w io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return errors.Wrapf(err, "creating report file<%s>", cfg.Output)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logrus.WithError(err).Error("failed to close report file")
			}
		}()
		w = f
	}
	return errors.Wrap(report.Write(w, rep, report.Format(cfg.Format)), "writing report")
}

func persistReport(ctx context.Context, rep *report.Report, cfg config.ReportConfig) error {
	if cfg.Storage == "" {
		return nil
	}
	db, err := storage.NewStorage(storage.Type(cfg.Storage), cfg.StorageOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Error("failed to close report storage")
		}
	}()
	store, err := report.NewStore(db)
	if err != nil {
		return err
	}
	if err = store.Save(ctx, rep); err != nil {
		return err
	}
	logrus.Infof("main: report %s saved to %s storage", rep.ID, cfg.Storage)
	return nil
}
