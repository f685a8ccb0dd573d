package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:               "baseorm",
		Short:             "Manage BASE ORM migrations and data",
		Long:              "baseorm creates and applies schema migrations and queries SQLite databases declared in a schema file.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.configFile, "config", "c", "", "config file (default: ./baseorm.yaml or ~/.baseorm/baseorm.yaml)")
	flags.StringVar(&app.alias, "database", app.alias, "database alias")
	flags.BoolVar(&app.debug, "debug", false, "log executed statements to stderr")
	flags.StringVar(&app.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newMakeMigrationsCommand(app),
		newMigrateCommand(app),
		newRollbackCommand(app),
		newStatusCommand(app),
		newInspectDBCommand(app),
		newQueryCommand(app),
		newDBShellCommand(app),
		newWatchCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the tool with args and releases everything it opened.
func Execute(ctx context.Context, app *App, args []string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.UI.Out)
	root.SetErr(app.UI.Err)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, app.teardown(root, args))
}
