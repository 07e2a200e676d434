//go:build mage

package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"syscall"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"golang.org/x/term"
)

var (
	Go = "go"
)

// Build builds the harness and the reference resolver.
func Build() error {
	fmt.Println("Building...")
	return sh.Run(Go, "build", "./...")
}

// Clean deletes any build artifacts.
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll("bin")
	os.Remove("coverage.out")
}

// CleanRun removes Docker container, network, and image artifacts.
func CleanRun() error {
	if err := isDockerReady(); err != nil {
		return err
	}
	fmt.Println("Cleaning containers...")
	return sh.Run("docker-compose", "--project-directory", "build", "down", "--rmi", "local")
}

// Run starts the reference resolver, the harness and jaeger via docker-compose.
func Run() error {
	if err := isDockerReady(); err != nil {
		return err
	}
	return sh.Run("docker-compose", "--project-directory", "build", "up", "--build")
}

// Test runs unit tests without coverage, skipping the slow storage providers.
// The mage `-v` option will trigger a verbose output of the test
func Test() error {
	return goTest([]string{"./..."}, "-short", "-race")
}

// CITest runs all tests with coverage as a part of CI.
// The mage `-v` option will trigger a verbose output of the test
func CITest() error {
	return goTest([]string{"./..."}, "-race", "-covermode=atomic", "-coverprofile=coverage.out")
}

// Integration runs the integration tests against the in-process reference resolver, or against
// $RESOLVER_ENDPOINT when it is set.
func Integration() error {
	return goTest([]string{"./integration/..."}, "-count=1")
}

// Conformance runs the harness with config/config.toml, or $CONFIG_PATH when it is set.
func Conformance() error {
	return sh.RunV(Go, "run", "./cmd/conformance")
}

// Resolver runs the reference resolver locally.
func Resolver() error {
	return sh.RunV(Go, "run", "./cmd/refresolver")
}

// CBT runs clean; build; test.
func CBT() error {
	Clean()
	if err := Build(); err != nil {
		return err
	}
	return Test()
}

func goTest(pkgs []string, flags ...string) error {
	args := []string{"test"}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	args = append(args, flags...)
	args = append(args, pkgs...)
	testEnv := map[string]string{
		"CGO_ENABLED": "1",
		"GO111MODULE": "on",
	}
	fmt.Printf("%+v\n", args)
	_, err := sh.Exec(testEnv, colorizeTestStdout(), os.Stderr, Go, args...)
	return err
}

func colorizeTestStdout() io.Writer {
	if !term.IsTerminal(syscall.Stdout) {
		return os.Stdout
	}
	writer := newRegexpWriter(os.Stdout, `PASS.*`, "\033[32m$0\033[0m")
	return newRegexpWriter(writer, `FAIL.*`, "\033[31m$0\033[0m")
}

type regexpWriter struct {
	inner io.Writer
	re    *regexp.Regexp
	repl  []byte
}

func newRegexpWriter(inner io.Writer, re string, repl string) io.Writer {
	return &regexpWriter{inner, regexp.MustCompile(re), []byte(repl)}
}

func (w *regexpWriter) Write(p []byte) (int, error) {
	// callers see their own byte count, not the rewritten one
	if _, err := w.inner.Write(w.re.ReplaceAll(p, w.repl)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// isDockerReady checks that docker is running.
func isDockerReady() error {
	err := sh.Run("docker", "ps")
	if !sh.CmdRan(err) {
		return fmt.Errorf("could not run docker: %w", err)
	}
	return nil
}
