package shell_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/command"
	"github.com/joona/osckit/config"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/shell"
)

// settingsShow prints the effective client configuration.
type settingsShow struct{}

func (settingsShow) Usage() string      { return "print settings" }
func (settingsShow) Flags() []cli.Flag  { return nil }
func (settingsShow) AuthRequired() bool { return false }
func (settingsShow) Execute(c *command.Context) error {
	cfg := c.Clients.Config
	fmt.Fprintf(c.Out, "interface=%s region=%s verify=%t beta=%t args=%v\n",
		cfg.Interface, cfg.RegionName, cfg.Verify, c.Options.BetaCommand, c.Args())
	return nil
}

type failing struct{ err error }

func (failing) Usage() string                    { return "fail" }
func (failing) Flags() []cli.Flag                { return nil }
func (failing) AuthRequired() bool               { return false }
func (f failing) Execute(*command.Context) error { return f.err }

// fetch issues one GET against its argument through the session.
type fetch struct{}

func (fetch) Usage() string      { return "fetch a URL" }
func (fetch) Flags() []cli.Flag  { return nil }
func (fetch) AuthRequired() bool { return false }
func (fetch) Execute(c *command.Context) error {
	sess, err := c.Clients.Session(c.Context())
	if err != nil {
		return err
	}
	resp, err := sess.Request(c.Context(), http.MethodGet, c.Args()[0], nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	fmt.Fprintln(c.Out, resp.StatusCode)
	return nil
}

func newShell(t *testing.T) (*shell.Shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	reg := command.NewRegistry()
	require.NoError(t, reg.Register("settings show", func() command.Command { return settingsShow{} }))
	require.NoError(t, reg.Register("broken user", func() command.Command {
		return failing{err: &oscerrors.NotFoundError{Kind: "server", Query: "web"}}
	}))
	require.NoError(t, reg.Register("broken internal", func() command.Command {
		return failing{err: fmt.Errorf("wrapped: %w", errors.New("root cause"))}
	}))
	require.NoError(t, reg.Register("fetch", func() command.Command { return fetch{} }))

	var out, errOut bytes.Buffer
	return &shell.Shell{
		Name:     "osc",
		Usage:    "test shell",
		Version:  "1.0.0",
		Registry: reg,
		Out:      &out,
		Err:      &errOut,
		Logger:   slog.New(slog.NewTextHandler(&errOut, nil)),
	}, &out, &errOut
}

func TestRunDispatchesMultiWordCommand(t *testing.T) {
	sh, out, _ := newShell(t)
	code := sh.Run(context.Background(), []string{"osc", "settings", "show", "extra"})
	require.Equal(t, 0, code)
	assert.Equal(t, "interface=public region= verify=true beta=false args=[extra]\n", out.String())
}

func TestRunUnknownCommand(t *testing.T) {
	sh, _, errOut := newShell(t)
	code := sh.Run(context.Background(), []string{"osc", "setings", "show"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), `unknown command "setings show"`)
	assert.Contains(t, errOut.String(), `did you mean "settings show"`)
}

func TestRunExitCodes(t *testing.T) {
	sh, _, errOut := newShell(t)
	assert.Equal(t, 1, sh.Run(context.Background(), []string{"osc", "broken", "user"}))
	assert.Contains(t, errOut.String(), "no server with a name or ID of 'web' exists")

	errOut.Reset()
	assert.Equal(t, 2, sh.Run(context.Background(), []string{"osc", "broken", "internal"}))
	assert.Contains(t, errOut.String(), "error: wrapped: root cause")
	assert.Contains(t, errOut.String(), "caused by: root cause")
}

func TestRunGlobalFlagsAndEnvironment(t *testing.T) {
	t.Setenv("OS_REGION_NAME", "RegionEnv")
	sh, out, _ := newShell(t)
	code := sh.Run(context.Background(), []string{
		"osc", "--os-interface", "admin", "--insecure", "--os-beta-command", "settings", "show",
	})
	require.Equal(t, 0, code)
	assert.Equal(t, "interface=admin region=RegionEnv verify=false beta=true args=[]\n", out.String())
}

func TestRunCloudConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clouds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
clouds:
  lab:
    auth_type: none
    region_name: RegionLab
    interface: internal
    verify: false
`), 0o600))

	sh, out, _ := newShell(t)
	sh.LoadConfig = func() (*config.Config, error) { return config.LoadFile(path) }

	require.Equal(t, 0, sh.Run(context.Background(), []string{"osc", "--os-cloud", "lab", "settings", "show"}))
	assert.Equal(t, "interface=internal region=RegionLab verify=false beta=false args=[]\n", out.String())

	out.Reset()
	require.Equal(t, 0, sh.Run(context.Background(), []string{
		"osc", "--os-cloud", "lab", "--os-region-name", "RegionFlag", "--verify", "settings", "show",
	}))
	assert.Equal(t, "interface=internal region=RegionFlag verify=true beta=false args=[]\n", out.String())

	assert.Equal(t, 1, sh.Run(context.Background(), []string{"osc", "--os-cloud", "nope", "settings", "show"}))
}

func TestRunTiming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sh, out, _ := newShell(t)
	code := sh.Run(context.Background(), []string{
		"osc", "--os-auth-type", "none", "--timing", "fetch", srv.URL + "/ping",
	})
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "204")
	assert.Contains(t, out.String(), "GET "+srv.URL+"/ping")
	assert.Contains(t, out.String(), "Total")
}

func TestRunWithoutCommandListsCommands(t *testing.T) {
	sh, out, _ := newShell(t)
	require.Equal(t, 0, sh.Run(context.Background(), []string{"osc"}))
	assert.Contains(t, out.String(), "Commands:")
	assert.Contains(t, out.String(), "settings show")
}
