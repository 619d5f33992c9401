package command

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/yndnr/sessbox-go/internal/app"
	"github.com/yndnr/sessbox-go/internal/config"
	"github.com/yndnr/sessbox-go/internal/remote/remotetest"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// testEnv runs CLI commands against an in-memory App shared across runs.
type testEnv struct {
	t   *testing.T
	app *app.App
	cfg *config.Config
}

// newTestEnv wires an App on the memory engine. With srv nil it runs
// local-only.
func newTestEnv(t *testing.T, srv *remotetest.Server) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Engine = config.EngineMemory
	cfg.Remote.RateLimit = 0
	if srv != nil {
		cfg.Remote.BaseURL = srv.URL
		cfg.Remote.Token = remotetest.Token
	}
	a, err := app.New(context.Background(), cfg, app.WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return &testEnv{t: t, app: a, cfg: cfg}
}

// run executes the CLI with args and returns what it wrote to stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	cliApp := App()
	cliApp.Writer = &out
	cliApp.ErrWriter = &errOut
	cliApp.Metadata = map[string]any{appKey: e.app, configKey: e.cfg}
	err := cliApp.Run(append([]string{"sessbox"}, args...))
	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("sessbox %s: error = %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// runJSON runs args with -o json and decodes stdout into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	out := e.mustRun(append([]string{"-o", "json"}, args...)...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		e.t.Fatalf("decode %q output: %v\n%s", strings.Join(args, " "), err, out)
	}
}

// createSession saves a session through the CLI and returns its ID.
func (e *testEnv) createSession(domain, name string) string {
	e.t.Helper()
	var v sessionView
	e.runJSON(&v, "session", "create", "--domain", domain, "--name", name)
	if v.ID == "" {
		e.t.Fatal("session create returned no ID")
	}
	return v.ID
}

// withStdin replaces the prompt and payload input for one test.
func withStdin(t *testing.T, input string) {
	t.Helper()
	prev := stdin
	stdin = strings.NewReader(input)
	t.Cleanup(func() { stdin = prev })
}
