package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/watch"
)

func newWatchCommand(app *App) *cobra.Command {
	var apply bool
	var description string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Create migrations whenever the schema file changes",
		Long:  "Watch the schema file and run makemigrations after every change, optionally applying the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New(app.cfg.Schema, func(ctx context.Context) error {
				return watchRound(cmd, app, description, apply)
			},
				watch.WithDebounce(debounce),
				watch.WithErrorHandler(func(err error) { app.UI.Error("%v", err) }),
			)
			if err != nil {
				return err
			}
			app.UI.Info("Watching %s (Ctrl+C to stop)", app.cfg.Schema)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&apply, "migrate", false, "apply new migrations right away")
	cmd.Flags().StringVarP(&description, "description", "d", "auto", "description used in generated migration names")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before reacting to a change")
	return cmd
}

// watchRound reloads the schema and runs one makemigrations pass.
func watchRound(cmd *cobra.Command, app *App, description string, apply bool) error {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			return err
		}
		app.db = nil
	}
	if err := runMakeMigrations(cmd, app, description); err != nil {
		return err
	}
	if !apply {
		return nil
	}
	return runMigrate(cmd, app, false, true)
}
