package integration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/oliveagle/jsonpath"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/did-resolution-conformance/config"
	"github.com/tbd54566975/did-resolution-conformance/internal/util"
	"github.com/tbd54566975/did-resolution-conformance/pkg/server"
)

const (
	// ResolverEndpointEnv points the tests at an already running resolver, e.g. the docker-compose one.
	ResolverEndpointEnv = "RESOLVER_ENDPOINT"
	basePath            = "/1.0/identifiers"
	MaxElapsedTime      = 30 * time.Second
)

var (
	//go:embed testdata
	testVectors embed.FS
	client      = &http.Client{Timeout: 10 * time.Second}
)

func init() {
	// Treats "\n" as new lines, see https://github.com/sirupsen/logrus/issues/608
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableQuote: true,
		ForceColors:  true,
	})
}

// target is the resolver the integration tests talk to.
type target struct {
	// Host is scheme and authority, without the base path.
	Host   string
	KeyDID string
}

func (t target) Endpoint() string {
	return t.Host + basePath
}

// startTarget returns the resolver from the environment, or starts the reference resolver on a real listener.
// The returned func stops whatever was started.
func startTarget() (*target, func(), error) {
	if host, ok := os.LookupEnv(ResolverEndpointEnv); ok {
		logrus.Infof("using resolver at %s", host)
		return &target{Host: host}, func() {}, nil
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, errors.Wrap(err, "listening")
	}
	cfg := config.ServerConfig{
		APIHost:         listener.Addr().String(),
		BasePath:        basePath,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
	s, err := server.NewResolverServer(make(chan os.Signal, 1), cfg)
	if err != nil {
		_ = listener.Close()
		return nil, nil, errors.Wrap(err, "creating reference resolver")
	}
	go func() {
		if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("reference resolver stopped")
		}
	}()
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("failed to stop reference resolver")
		}
	}
	return &target{Host: "http://" + cfg.APIHost, KeyDID: s.KeyDID}, stop, nil
}

// waitHealthy polls the health endpoint until it answers OK.
func waitHealthy(host string) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = MaxElapsedTime

	return backoff.Retry(func() error {
		status, body, err := get(host+server.HealthPrefix, "")
		if err != nil {
			logrus.WithError(err).Debug("retryable error caught, retrying..")
			return err
		}
		if !util.Is2xxResponse(status) {
			return errors.Errorf("health status %d", status)
		}
		healthStatus, err := getJSONElement(body, "$.status")
		if err != nil {
			return backoff.Permanent(err)
		}
		if healthStatus != server.HealthOK {
			return errors.Errorf("health status %s", healthStatus)
		}
		return nil
	}, expBackoff)
}

// implementations renders testdata/implementations.toml for the target.
func implementations(t target) (config.Registry, error) {
	rendered, err := resolveTemplate(t, "implementations.toml")
	if err != nil {
		return nil, err
	}
	var file struct {
		Implementations config.Registry `toml:"implementations"`
	}
	if _, err = toml.Decode(rendered, &file); err != nil {
		return nil, errors.Wrap(err, "decoding implementations")
	}
	if err = file.Implementations.Validate(); err != nil {
		return nil, err
	}
	return file.Implementations, nil
}

func resolveTemplate(input any, fileName string) (string, error) {
	t, err := template.ParseFS(testVectors, "testdata/"+fileName)
	if err != nil {
		return "", errors.Wrapf(err, "parsing template %s", fileName)
	}
	var buffer bytes.Buffer
	if err = t.Execute(&buffer, input); err != nil {
		return "", errors.Wrapf(err, "executing template %s", fileName)
	}
	return buffer.String(), nil
}

func getJSONElement(jsonString string, jsonPath string) (string, error) {
	jsonMap := make(map[string]any)
	if err := json.Unmarshal([]byte(jsonString), &jsonMap); err != nil {
		return "", errors.Wrap(err, "unmarshalling json string")
	}

	element, err := jsonpath.JsonPathLookup(jsonMap, jsonPath)
	if err != nil {
		return "", errors.Wrap(err, "finding element in json string")
	}

	if element == nil {
		return "<nil>", nil
	}
	switch e := element.(type) {
	case string:
		return e, nil
	case map[string]any, []any:
		data, err := json.Marshal(e)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return fmt.Sprintf("%v", e), nil
	}
}

// get performs a GET without following redirects and returns the status and body.
func get(url, accept string) (int, string, error) {
	logrus.Printf("\nPerforming GET request to:  %s\n", url)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, "", errors.Wrap(err, "building http req")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	noRedirect := *client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := noRedirect.Do(req)
	if err != nil {
		return 0, "", errors.Wrapf(err, "getting url: %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", errors.Wrap(err, "parsing body")
	}
	logrus.Infof("Received %d:  %s", resp.StatusCode, string(body))
	return resp.StatusCode, string(body), nil
}
