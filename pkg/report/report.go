// Package report records scenario outcomes of a conformance run and renders or persists them.
package report

import (
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/tbd54566975/did-resolution-conformance/pkg/result"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is the outcome of one scenario against one implementation.
type Result struct {
	Implementation string             `json:"implementation"`
	Suite          string             `json:"suite"`
	Scenario       string             `json:"scenario"`
	Link           string             `json:"link,omitempty"`
	Status         Status             `json:"status"`
	Violations     []result.Violation `json:"violations,omitempty"`
	SkipReason     string             `json:"skipReason,omitempty"`
	Duration       time.Duration      `json:"duration"`
}

// Report is a whole run. It is not safe for concurrent mutation; the runner adds results from a single goroutine.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Results    []Result  `json:"results"`
}

// Summary counts outcomes for one implementation and suite.
type Summary struct {
	Implementation string `json:"implementation"`
	Suite          string `json:"suite"`
	Passed         int    `json:"passed"`
	Failed         int    `json:"failed"`
	Skipped        int    `json:"skipped"`
}

func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// New starts a report with a fresh run id.
func New(clk clock.Clock) *Report {
	return &Report{
		ID:        uuid.NewString(),
		StartedAt: clk.Now().UTC(),
	}
}

func (r *Report) Add(results ...Result) {
	r.Results = append(r.Results, results...)
}

// Finish stamps the end of the run and orders results by implementation, suite and scenario.
func (r *Report) Finish(clk clock.Clock) {
	r.FinishedAt = clk.Now().UTC()
	sort.SliceStable(r.Results, func(i, j int) bool {
		a, b := r.Results[i], r.Results[j]
		if a.Implementation != b.Implementation {
			return a.Implementation < b.Implementation
		}
		if a.Suite != b.Suite {
			return a.Suite < b.Suite
		}
		return a.Scenario < b.Scenario
	})
}

func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summaries counts outcomes per implementation and suite, in first-seen order.
func (r *Report) Summaries() []Summary {
	var summaries []Summary
	index := make(map[[2]string]int)
	for _, res := range r.Results {
		key := [2]string{res.Implementation, res.Suite}
		i, ok := index[key]
		if !ok {
			i = len(summaries)
			index[key] = i
			summaries = append(summaries, Summary{Implementation: res.Implementation, Suite: res.Suite})
		}
		switch res.Status {
		case StatusPass:
			summaries[i].Passed++
		case StatusFail:
			summaries[i].Failed++
		case StatusSkip:
			summaries[i].Skipped++
		}
	}
	return summaries
}

// Failed reports whether any scenario failed.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return true
		}
	}
	return false
}
