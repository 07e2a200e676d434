package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/report"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

const (
	DefaultParallelism = 4
	tracerName         = "github.com/tbd54566975/did-resolution-conformance/pkg/harness"
)

// Suites returns every suite in run order.
func Suites() []SuiteFunc {
	return []SuiteFunc{ResolutionSuite, ParametersSuite, BindingSuite}
}

// Runner executes the scenarios of its suites for each implementation on a bounded worker pool.
type Runner struct {
	client      *binding.Client
	oracle      *oracle.Oracle
	suites      []SuiteFunc
	parallelism int
	readiness   time.Duration
	clock       clock.Clock
	tracer      trace.Tracer
}

type Option func(*Runner)

func WithSuites(suites ...SuiteFunc) Option {
	return func(r *Runner) {
		r.suites = suites
	}
}

// WithParallelism bounds how many scenarios run at once. Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithReadinessTimeout makes the runner wait up to d for each endpoint to answer before running its scenarios.
func WithReadinessTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.readiness = d
	}
}

func WithClock(clk clock.Clock) Option {
	return func(r *Runner) {
		r.clock = clk
	}
}

func NewRunner(client *binding.Client, o *oracle.Oracle, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		oracle:      o,
		suites:      Suites(),
		parallelism: DefaultParallelism,
		clock:       clock.New(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	impl     config.Implementation
	scenario Scenario
}

// Run executes every scenario for every implementation and returns the finished report. Implementations are the
// explicit list the caller selected; the runner does no filtering of its own.
func (r *Runner) Run(ctx context.Context, impls config.Registry) *report.Report {
	rep := report.New(r.clock)
	jobs := make(chan job)
	results := make(chan report.Result)

	var wg sync.WaitGroup
	for i := 0; i < r.parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- r.runScenario(ctx, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, impl := range impls {
			r.waitReady(ctx, impl)
			for _, suite := range r.suites {
				for _, s := range suite(impl) {
					select {
					case jobs <- job{impl: impl, scenario: s}:
					case <-ctx.Done():
						logrus.WithError(ctx.Err()).Warn("run cancelled, remaining scenarios not started")
						return
					}
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		rep.Add(res)
	}
	rep.Finish(r.clock)

	logrus.WithFields(logrus.Fields{
		"id":        rep.ID,
		"scenarios": len(rep.Results),
		"failed":    rep.Failed(),
	}).Info("conformance run finished")
	return rep
}

func (r *Runner) waitReady(ctx context.Context, impl config.Implementation) {
	if r.readiness <= 0 {
		return
	}
	if err := r.client.WaitReady(ctx, impl.Endpoint, r.readiness); err != nil {
		// the scenarios themselves will report the transport failures
		logrus.WithError(err).WithField("implementation", impl.Name).Warn("resolver did not become ready")
	}
}

func (r *Runner) runScenario(ctx context.Context, j job) (res report.Result) {
	ctx, span := r.tracer.Start(ctx, j.scenario.Suite+": "+j.scenario.Name, trace.WithAttributes(
		attribute.String("implementation", j.impl.Name),
		attribute.String("endpoint", j.impl.Endpoint),
		attribute.String("suite", j.scenario.Suite),
	))
	defer span.End()

	t := &T{
		ctx:    ctx,
		impl:   j.impl,
		client: r.client,
		oracle: r.oracle,
		link:   j.scenario.Link,
	}
	start := r.clock.Now()

	defer func() {
		if p := recover(); p != nil {
			logrus.WithFields(logrus.Fields{
				"implementation": j.impl.Name,
				"scenario":       j.scenario.Name,
			}).Errorf("scenario panicked: %v\n%s", p, debug.Stack())
			t.add(result.Violation{Category: result.CategoryHarness, Message: fmt.Sprintf("scenario panicked: %v", p)})
		}
		res = t.result(j.scenario, r.clock.Since(start))

		span.SetAttributes(attribute.String("status", string(res.Status)))
		if res.Status == report.StatusFail {
			span.SetStatus(codes.Error, fmt.Sprintf("%d violations", len(res.Violations)))
		}
		logrus.WithFields(logrus.Fields{
			"implementation": res.Implementation,
			"scenario":       res.Scenario,
			"status":         res.Status,
		}).Debug("scenario finished")
	}()

	j.scenario.Run(t)
	return res
}
