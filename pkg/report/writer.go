package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Write renders r in the given format. An empty format is text.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	default:
		return errors.Errorf("unknown report format: %s", format)
	}
}

func WriteJSON(w io.Writer, r *Report) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling report")
	}
	if _, err = w.Write(append(b, '\n')); err != nil {
		return errors.Wrap(err, "writing report")
	}
	return nil
}

// WriteText renders a human readable report: one line per scenario, the violations of failed scenarios with their
// permalink, and a summary per implementation and suite.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Conformance run %s started %s\n", r.ID, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"))

	var impl, suite string
	for _, res := range r.Results {
		if res.Implementation != impl || res.Suite != suite {
			impl, suite = res.Implementation, res.Suite
			fmt.Fprintf(&b, "\n%s / %s\n", impl, suite)
		}
		switch res.Status {
		case StatusSkip:
			fmt.Fprintf(&b, "  SKIP  %s: %s\n", res.Scenario, res.SkipReason)
		default:
			fmt.Fprintf(&b, "  %-4s  %s (%s)\n", strings.ToUpper(string(res.Status)), res.Scenario, res.Duration.Round(time.Millisecond))
		}
		for _, v := range res.Violations {
			fmt.Fprintf(&b, "        %s\n", v.String())
		}
		if res.Status == StatusFail && res.Link != "" {
			fmt.Fprintf(&b, "        see %s\n", res.Link)
		}
	}

	b.WriteString("\nSummary\n")
	for _, s := range r.Summaries() {
		fmt.Fprintf(&b, "  %s / %s: %d passed, %d failed, %d skipped\n", s.Implementation, s.Suite, s.Passed, s.Failed, s.Skipped)
	}
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(&b, "Finished in %s\n", d)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "writing report")
	}
	return nil
}
