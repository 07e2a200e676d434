package binding

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tbd54566975/did-resolution-conformance/internal/util"
)

const (
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize bounds how much of an untrusted response body is read.
	DefaultMaxBodySize int64 = 10 << 20
)

// ErrBodyTooLarge is wrapped in the TransportError of a response whose body exceeds the client's limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Request is a single GET against a resolver.
type Request struct {
	URL    string
	Accept string

	// ManualRedirect returns 3xx responses as-is instead of following the Location header.
	ManualRedirect bool
}

// Response is an immutable snapshot of what a resolver returned.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the Content-Type response header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Location returns the Location response header.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// OK mirrors a fetch Response.ok: true for 2xx statuses.
func (r *Response) OK() bool {
	return util.Is2xxResponse(r.StatusCode)
}

// JSON decodes the body into generic JSON values, keeping explicit nulls as present keys with nil values.
func (r *Response) JSON() (any, error) {
	var out any
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshalling response body")
	}
	return out, nil
}

// TransportError is a network failure or timeout contacting a resolver. It is never retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure contacting <%s>: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err was caused by a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client performs binding requests against resolvers under test.
type Client struct {
	follow  *http.Client
	manual  *http.Client
	timeout time.Duration
	clock   clock.Clock
	maxBody int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport sets the base round tripper, wrapped with tracing.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		transport := otelhttp.NewTransport(rt)
		c.follow.Transport = transport
		c.manual.Transport = transport
	}
}

// WithClock sets the clock used to time requests.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithMaxBodySize sets how many body bytes a response may carry before it is rejected.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient creates a client whose requests are each bounded by timeout. A zero timeout uses DefaultTimeout.
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := otelhttp.NewTransport(http.DefaultTransport)
	c := &Client{
		follow: &http.Client{Transport: transport},
		manual: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
		clock:   clock.New(),
		maxBody: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs one GET request and snapshots the response.
func (c *Client) Get(ctx context.Context, request Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, request.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	if request.Accept != "" {
		req.Header.Set("Accept", request.Accept)
	}

	httpClient := c.follow
	if request.ManualRedirect {
		httpClient = c.manual
	}

	logrus.WithFields(logrus.Fields{
		"url":    util.SanitizeLog(request.URL),
		"accept": request.Accept,
	}).Debug("performing GET request")

	start := c.clock.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: request.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &TransportError{URL: request.URL, Err: errors.Wrap(err, "reading response body")}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &TransportError{URL: request.URL, Err: errors.Wrapf(ErrBodyTooLarge, "exceeds %d bytes", c.maxBody)}
	}

	response := &Response{
		URL:        request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		Duration:   c.clock.Since(start),
	}
	logrus.WithFields(logrus.Fields{
		"url":          util.SanitizeLog(request.URL),
		"status":       response.StatusCode,
		"content_type": response.ContentType(),
	}).Debug("received response")
	return response, nil
}

// WaitReady polls endpoint until it answers any HTTP response, or maxElapsed passes. This is a pre-flight check
// before scenarios run; scenario requests themselves are never retried.
func (c *Client) WaitReady(ctx context.Context, endpoint string, maxElapsed time.Duration) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		if _, err := c.Get(ctx, Request{URL: endpoint, ManualRedirect: true}); err != nil {
			logrus.WithError(err).Debug("resolver not ready, retrying..")
			return err
		}
		return nil
	}, backoff.WithContext(expBackoff, ctx))
}
