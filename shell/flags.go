package shell

import (
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func globalFlags() []cli.Flag {
	str := func(name, usage string, env ...string) *cli.StringFlag {
		return &cli.StringFlag{Name: name, Usage: usage, EnvVars: env}
	}
	return []cli.Flag{
		str("os-cloud", "Cloud name in clouds.yaml", "OS_CLOUD"),
		str("os-auth-type", "Authentication type: password, token, token_endpoint, admin_token or none", "OS_AUTH_TYPE"),
		str("os-auth-url", "Identity service URL", "OS_AUTH_URL"),
		str("os-username", "Username", "OS_USERNAME"),
		str("os-user-id", "User ID", "OS_USER_ID"),
		str("os-password", "Password", "OS_PASSWORD"),
		str("os-project-name", "Project name to scope to", "OS_PROJECT_NAME"),
		str("os-project-id", "Project ID to scope to", "OS_PROJECT_ID"),
		str("os-user-domain-name", "Domain name of the user", "OS_USER_DOMAIN_NAME"),
		str("os-project-domain-name", "Domain name of the project", "OS_PROJECT_DOMAIN_NAME"),
		str("os-token", "Pre-issued token", "OS_TOKEN"),
		str("os-endpoint", "Service endpoint, bypassing the catalog", "OS_ENDPOINT"),
		str("os-region-name", "Service region", "OS_REGION_NAME"),
		&cli.StringFlag{
			Name:    "os-interface",
			Usage:   "Endpoint interface: public, internal or admin",
			EnvVars: []string{"OS_INTERFACE"},
			Value:   "public",
		},
		str("os-cacert", "CA bundle to verify TLS servers with", "OS_CACERT"),
		str("os-cert", "Client certificate", "OS_CERT"),
		str("os-key", "Client certificate key", "OS_KEY"),
		&cli.BoolFlag{Name: "verify", Usage: "Verify server certificates"},
		&cli.BoolFlag{Name: "insecure", Usage: "Disable server certificate verification", EnvVars: []string{"OS_INSECURE"}},
		&cli.BoolFlag{Name: "timing", Usage: "Print API call timing after the command"},
		&cli.BoolFlag{Name: "os-beta-command", Usage: "Enable beta commands", EnvVars: []string{"OS_BETA_COMMAND"}},
		&cli.BoolFlag{Name: "debug", Usage: "Log at debug level"},
		&cli.IntFlag{Name: "timeout", Usage: "HTTP timeout in seconds (0 disables)", EnvVars: []string{"OS_TIMEOUT"}},
	}
}

// newLogger writes text to a terminal and JSON otherwise. Warnings and
// above are shown unless debug is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelWarn}
	if debug {
		options.Level = slog.LevelDebug
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
