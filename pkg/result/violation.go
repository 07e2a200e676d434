package result

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category classifies what kind of rule a violation broke.
type Category string

const (
	// CategorySchema means the body does not have the required envelope shape.
	CategorySchema Category = "schema"
	// CategoryBinding means an error kind is present but the HTTP status or headers disagree with the binding.
	CategoryBinding Category = "binding"
	// CategoryClassification means the error kind is missing, unknown or not the one the request should produce.
	CategoryClassification Category = "classification"
	// CategoryTransport means the resolver could not be contacted.
	CategoryTransport Category = "transport"
	// CategoryHarness means the scenario itself broke while running; the resolver was not judged.
	CategoryHarness Category = "harness"
)

// Violation is one failed clause, with the offending field and value.
type Violation struct {
	Category Category `json:"category"`
	Field    string   `json:"field,omitempty"`
	Expected string   `json:"expected,omitempty"`
	Actual   string   `json:"actual,omitempty"`
	Message  string   `json:"message"`
	Link     string   `json:"link,omitempty"`
}

func (v Violation) String() string {
	var b strings.Builder
	b.WriteString("[" + string(v.Category) + "]")
	if v.Field != "" {
		b.WriteString(" " + v.Field + ":")
	}
	b.WriteString(" " + v.Message)
	if v.Expected != "" || v.Actual != "" {
		fmt.Fprintf(&b, " (expected %s, got %s)", v.Expected, v.Actual)
	}
	return b.String()
}

// Outcome collects every violated clause of a check rather than stopping at the first.
type Outcome struct {
	Violations []Violation `json:"violations,omitempty"`
}

// OK is true when nothing was violated.
func (o Outcome) OK() bool {
	return len(o.Violations) == 0
}

// Add records a violation.
func (o *Outcome) Add(v Violation) {
	o.Violations = append(o.Violations, v)
}

// Addf records a violation without expected/actual values.
func (o *Outcome) Addf(category Category, field, format string, args ...any) {
	o.Add(Violation{Category: category, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all violations of other.
func (o *Outcome) Merge(other Outcome) {
	o.Violations = append(o.Violations, other.Violations...)
}

// Has reports whether any violation of the given category was recorded.
func (o Outcome) Has(category Category) bool {
	for _, v := range o.Violations {
		if v.Category == category {
			return true
		}
	}
	return false
}

// Err returns nil when the outcome is OK, otherwise an error listing every violation.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	msgs := make([]string, 0, len(o.Violations))
	for _, v := range o.Violations {
		msgs = append(msgs, v.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
