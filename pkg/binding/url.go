package binding

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidURL is returned when a base URL is not a parseable absolute URL.
var ErrInvalidURL = errors.New("invalid URL")

// Option is a single named resolution or dereferencing option, sent as a query parameter.
type Option struct {
	Name  string
	Value any
}

// Options is an ordered list of options. Repeated names are preserved as repeated query parameters.
type Options []Option

// With returns a copy of o with one more option appended.
func (o Options) With(name string, value any) Options {
	out := make(Options, len(o), len(o)+1)
	copy(out, o)
	return append(out, Option{Name: name, Value: value})
}

// OptionsFromMap converts a decoded options table into Options. Keys are sorted so the result is deterministic;
// slice values become repeated parameters in their original order.
func OptionsFromMap(m map[string]any) Options {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var opts Options
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			for _, item := range v {
				opts = append(opts, Option{Name: k, Value: item})
			}
		case []string:
			for _, item := range v {
				opts = append(opts, Option{Name: k, Value: item})
			}
		default:
			opts = append(opts, Option{Name: k, Value: v})
		}
	}
	return opts
}

// ComposeURL appends every option to baseURL as a query parameter. Values are query-encoded; the path of baseURL,
// including any DID segment, is left exactly as given. Empty options return baseURL unmodified.
func ComposeURL(baseURL string, options Options) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", errors.Wrapf(ErrInvalidURL, "base url<%s>", baseURL)
	}
	if len(options) == 0 {
		return baseURL, nil
	}

	var query strings.Builder
	for i, opt := range options {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(opt.Name))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(formatValue(opt.Value)))
	}

	base, fragment := baseURL, ""
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base, fragment = base[:i], base[i:]
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}
	return base + sep + query.String() + fragment, nil
}

// ResourceURL joins a resolver endpoint and a DID or DID URL into the request URL of the HTTP(S) binding.
// The DID is appended verbatim; use EncodeComponent first when it must be URL-encoded.
func ResourceURL(endpoint, didOrURL string) string {
	return strings.TrimSuffix(endpoint, "/") + "/" + didOrURL
}

// EncodeComponent percent-encodes s the way a URI component is encoded: everything but unreserved characters and
// !*'() is escaped, including ':' '/' '?' and '#'.
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isComponentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isComponentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}
