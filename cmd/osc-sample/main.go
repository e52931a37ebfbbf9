package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joona/osckit/clientmanager"
	"github.com/joona/osckit/command"
	"github.com/joona/osckit/internal/client"
	"github.com/joona/osckit/internal/commands"
	"github.com/joona/osckit/shell"
)

func main() {
	reg := command.NewRegistry()
	if err := commands.Register(reg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	sh := &shell.Shell{
		Name:     "osc-sample",
		Usage:    "Manage document collections through the osckit shell",
		Version:  "0.1.0",
		Registry: reg,
		ClientOptions: []clientmanager.Option{
			clientmanager.WithFactory(client.ServiceType, client.Factory),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := sh.Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
