// Package shell is the entry point a host binary hands its argv to. It
// parses the global --os-* options, merges them over the selected cloud
// from clouds.yaml, builds the client manager and dispatches to a
// registered command.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/clientmanager"
	"github.com/joona/osckit/command"
	"github.com/joona/osckit/config"
	oscerrors "github.com/joona/osckit/errors"
	"github.com/joona/osckit/format"
	"github.com/joona/osckit/utils"
)

// Shell runs one CLI invocation.
type Shell struct {
	Name     string
	Usage    string
	Version  string
	Registry *command.Registry

	// Out and Err default to os.Stdout and os.Stderr. In is where the
	// password prompt reads from, os.Stdin by default.
	Out io.Writer
	Err io.Writer
	In  *os.File

	// Logger replaces the logger built from --debug and the Err stream.
	Logger *slog.Logger
	// LoadConfig defaults to config.LoadOptional.
	LoadConfig func() (*config.Config, error)
	// ClientOptions are applied to every client manager, typically
	// clientmanager.WithFactory registrations.
	ClientOptions []clientmanager.Option
}

func (s *Shell) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}
	return s.Out
}

func (s *Shell) errOut() io.Writer {
	if s.Err == nil {
		return os.Stderr
	}
	return s.Err
}

// Run executes args (including the program name, as in os.Args) and
// returns the process exit code.
func (s *Shell) Run(ctx context.Context, args []string) int {
	app := &cli.App{
		Name:            s.Name,
		Usage:           s.Usage,
		Version:         s.Version,
		ArgsUsage:       "<command> [command options] [arguments...]",
		Flags:           globalFlags(),
		Writer:          s.out(),
		ErrWriter:       s.errOut(),
		HideHelpCommand: true,
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return oscerrors.Commandf("%w", err)
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Action:         s.action,
	}

	err := app.RunContext(ctx, args)
	if err == nil {
		return 0
	}
	if oscerrors.IsUserFacing(err) {
		fmt.Fprintln(s.errOut(), err.Error())
		return 1
	}
	s.printChain(err)
	return 2
}

func (s *Shell) printChain(err error) {
	w := s.errOut()
	fmt.Fprintf(w, "error: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(w, "  caused by: %v\n", cause)
	}
}

func (s *Shell) action(c *cli.Context) error {
	argv := c.Args().Slice()
	if len(argv) == 0 {
		if err := cli.ShowAppHelp(c); err != nil {
			return err
		}
		s.printCommands()
		return nil
	}
	if argv[0] == "help" {
		if len(argv) == 1 {
			s.printCommands()
			return nil
		}
		argv = append(argv[1:], "--help")
	}

	logger := s.Logger
	if logger == nil {
		logger = newLogger(s.errOut(), c.Bool("debug"))
	}

	opts, err := s.clientOptions(c)
	if err != nil {
		return err
	}
	in := s.In
	if in == nil {
		in = os.Stdin
	}
	cmOpts := append([]clientmanager.Option{
		clientmanager.WithLogger(logger),
		clientmanager.WithUserAgent(s.Name, s.Version),
		clientmanager.WithPasswordPrompt(func() (string, error) {
			return utils.GetPassword(in, s.errOut(), "Password: ", false)
		}),
	}, s.ClientOptions...)
	clients := clientmanager.New(opts, cmOpts...)

	appOpts := command.AppOptions{
		BetaCommand: c.Bool("os-beta-command"),
		Debug:       c.Bool("debug"),
	}
	bind := func(cCtx *cli.Context, cmd command.Command) (*command.Context, error) {
		required := command.RequiresAuth(cmd)
		clients.SetAuthRequired(required)
		if required {
			if _, err := clients.AuthRef(cCtx.Context); err != nil {
				return nil, err
			}
		}
		return &command.Context{
			CLI:     cCtx,
			Clients: clients,
			Logger:  logger,
			Out:     s.out(),
			Options: appOpts,
		}, nil
	}

	logger.DebugContext(c.Context, "dispatching", "argv", strings.Join(argv, " "))
	runErr := s.Registry.Run(c.Context, argv, bind)

	if opts.Timing {
		if err := s.printTimings(clients); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (s *Shell) printCommands() {
	w := s.out()
	fmt.Fprintln(w, "Commands:")
	for _, name := range s.Registry.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

func (s *Shell) printTimings(clients *clientmanager.ClientManager) error {
	columns, rows := command.TimingTable(clients.Timings())
	p, err := format.NewPrinter("table")
	if err != nil {
		return err
	}
	return p.List(s.out(), columns, rows)
}

// clientOptions merges the selected cloud with the global flags. A flag or
// its environment variable wins over the cloud's value.
func (s *Shell) clientOptions(c *cli.Context) (clientmanager.Options, error) {
	var cloud config.Cloud
	if name := c.String("os-cloud"); name != "" {
		load := s.LoadConfig
		if load == nil {
			load = config.LoadOptional
		}
		cfg, err := load()
		if err != nil {
			return clientmanager.Options{}, oscerrors.Commandf("unable to load cloud config: %w", err)
		}
		cloud, err = cfg.Resolve(name)
		if err != nil {
			return clientmanager.Options{}, oscerrors.Commandf("%w", err)
		}
	}

	auth := cloud.AuthOptions()
	opts := clientmanager.Options{
		Verify:     cloud.Verify,
		CACert:     pick(c, "os-cacert", cloud.CACert),
		Cert:       pick(c, "os-cert", cloud.Cert),
		Key:        pick(c, "os-key", cloud.Key),
		Interface:  pick(c, "os-interface", cloud.Interface),
		RegionName: pick(c, "os-region-name", cloud.RegionName),
		AuthType:   pick(c, "os-auth-type", cloud.AuthType),
		Timeout:    time.Duration(c.Int("timeout")) * time.Second,
		Timing:     c.Bool("timing"),
	}
	opts.Auth.AuthURL = pick(c, "os-auth-url", auth.AuthURL)
	opts.Auth.Username = pick(c, "os-username", auth.Username)
	opts.Auth.UserID = pick(c, "os-user-id", auth.UserID)
	opts.Auth.Password = pick(c, "os-password", auth.Password)
	opts.Auth.ProjectName = pick(c, "os-project-name", auth.ProjectName)
	opts.Auth.ProjectID = pick(c, "os-project-id", auth.ProjectID)
	opts.Auth.UserDomainName = pick(c, "os-user-domain-name", auth.UserDomainName)
	opts.Auth.ProjectDomainName = pick(c, "os-project-domain-name", auth.ProjectDomainName)
	opts.Auth.Token = pick(c, "os-token", auth.Token)
	opts.Auth.Endpoint = pick(c, "os-endpoint", auth.Endpoint)

	if c.IsSet("verify") {
		v := c.Bool("verify")
		opts.Verify = &v
	}
	if c.IsSet("insecure") {
		v := c.Bool("insecure")
		opts.Insecure = &v
	}
	return opts, nil
}

func pick(c *cli.Context, flag, fromCloud string) string {
	if c.IsSet(flag) || fromCloud == "" {
		return c.String(flag)
	}
	return fromCloud
}
