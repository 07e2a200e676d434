// Package harness runs conformance scenarios against DID resolvers and collects their outcomes into a report.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/pkg/binding"
	"github.com/tbd54566975/did-resolution-conformance/pkg/oracle"
	"github.com/tbd54566975/did-resolution-conformance/pkg/report"
	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

const (
	SuiteResolution = "DID Resolution"
	SuiteParameters = "DID Parameters"
	SuiteBinding    = "HTTP(S) Binding"
)

// Scenario is one named check against one implementation.
type Scenario struct {
	Suite string
	Name  string
	// Link is the permalink into the normative text the scenario checks.
	Link string
	Run  func(t *T)
}

// SuiteFunc builds the scenarios of a suite for one implementation.
type SuiteFunc func(impl config.Implementation) []Scenario

// T is handed to a running scenario. It performs requests and records violations; it is not shared between
// scenarios.
type T struct {
	ctx    context.Context
	impl   config.Implementation
	client *binding.Client
	oracle *oracle.Oracle
	link   string

	outcome    result.Outcome
	skipReason string
}

func (t *T) Context() context.Context {
	return t.ctx
}

func (t *T) Implementation() config.Implementation {
	return t.impl
}

func (t *T) Oracle() *oracle.Oracle {
	return t.oracle
}

// Get issues a GET that follows redirects. On transport failure it records a transport violation and returns false.
func (t *T) Get(url, accept string) (*binding.Response, bool) {
	return t.do(binding.Request{URL: url, Accept: accept})
}

// GetManual issues a GET that returns redirects as-is.
func (t *T) GetManual(url, accept string) (*binding.Response, bool) {
	return t.do(binding.Request{URL: url, Accept: accept, ManualRedirect: true})
}

func (t *T) do(req binding.Request) (*binding.Response, bool) {
	resp, err := t.client.Get(t.ctx, req)
	if err != nil {
		t.add(result.Violation{Category: result.CategoryTransport, Field: req.URL, Message: err.Error()})
		return nil, false
	}
	return resp, true
}

// Check records every violation of out and reports whether there were none.
func (t *T) Check(out result.Outcome) bool {
	for _, v := range out.Violations {
		t.add(v)
	}
	return out.OK()
}

// CheckInput is Check for one input of a corpus sweep; the input is named in each violation.
func (t *T) CheckInput(input string, out result.Outcome) bool {
	for _, v := range out.Violations {
		v.Message = fmt.Sprintf("%s (input %q)", v.Message, input)
		t.add(v)
	}
	return out.OK()
}

// Errorf records a violation.
func (t *T) Errorf(category result.Category, field, format string, args ...any) {
	t.add(result.Violation{Category: category, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Skip marks the scenario skipped. The scenario should return right after.
func (t *T) Skip(reason string) {
	t.skipReason = reason
}

func (t *T) Skipped() bool {
	return t.skipReason != ""
}

func (t *T) Failed() bool {
	return !t.outcome.OK()
}

func (t *T) add(v result.Violation) {
	if v.Link == "" {
		v.Link = t.link
	}
	t.outcome.Add(v)
}

func (t *T) result(s Scenario, d time.Duration) report.Result {
	res := report.Result{
		Implementation: t.impl.Name,
		Suite:          s.Suite,
		Scenario:       s.Name,
		Link:           s.Link,
		Violations:     t.outcome.Violations,
		Duration:       d,
	}
	switch {
	case t.Failed():
		res.Status = report.StatusFail
	case t.Skipped():
		res.Status = report.StatusSkip
		res.SkipReason = t.skipReason
	default:
		res.Status = report.StatusPass
	}
	return res
}
