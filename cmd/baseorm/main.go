// Command baseorm manages BASE ORM migrations and data from the shell.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/baseorm/baseorm/cmd/baseorm/commands"
	"github.com/baseorm/baseorm/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp(ui.Stdio(), afero.NewOsFs())
	if err := commands.Execute(ctx, app, os.Args[1:]); err != nil {
		app.UI.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
