package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/outputkeeper/cmd/outputkeeper/commands"
	"git.home.luguber.info/inful/outputkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/outputkeeper/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("outputkeeper"),
		kong.Description("Back up and clean build output directories around your build commands."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	global := &commands.Global{
		Context:   ctx,
		Logger:    slog.Default(),
		SessionID: uuid.NewString(),
		Stdout:    os.Stdout,
	}
	err := parser.Run(global, cli)
	stop()
	if err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
