// Package command provides the base command types plugins build on and the
// registry the shell dispatches through.
package command

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/joona/osckit/clientmanager"
	oscerrors "github.com/joona/osckit/errors"
)

// Command is one CLI action. A fresh instance is built for every invocation.
type Command interface {
	Usage() string
	Flags() []cli.Flag
	Execute(c *Context) error
}

// ArgsUser is implemented by commands that take positional arguments.
type ArgsUser interface {
	ArgsUsage() string
}

// AuthRequirer is implemented by commands that can run without a token.
// Commands that don't implement it require auth.
type AuthRequirer interface {
	AuthRequired() bool
}

// AppOptions are the global options a command may consult.
type AppOptions struct {
	BetaCommand bool
	Debug       bool
}

// Context is what a command receives when it runs.
type Context struct {
	CLI     *cli.Context
	Clients *clientmanager.ClientManager
	Logger  *slog.Logger
	Out     io.Writer
	Options AppOptions
}

// Context returns the invocation's context.Context.
func (c *Context) Context() context.Context {
	if c.CLI != nil && c.CLI.Context != nil {
		return c.CLI.Context
	}
	return context.Background()
}

// Args returns the positional arguments.
func (c *Context) Args() []string {
	if c.CLI == nil {
		return nil
	}
	return c.CLI.Args().Slice()
}

// Stdout is where command output goes, os.Stdout unless Out is set.
func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Log returns the invocation logger, falling back to slog.Default.
func (c *Context) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ValidateBetaEnabled fails unless --os-beta-command was given.
func (c *Context) ValidateBetaEnabled() error {
	if c.Options.BetaCommand {
		return nil
	}
	return &oscerrors.CommandError{
		Message: "Caution: This is a beta command and subject to change. " +
			"Use global option --os-beta-command to enable this command.",
	}
}

// DeprecatedOptionWarning logs that oldOption should be replaced by newOption.
func (c *Context) DeprecatedOptionWarning(oldOption, newOption string) {
	c.Log().Warn("The " + oldOption + " option is deprecated, please use " + newOption + " instead.")
}
