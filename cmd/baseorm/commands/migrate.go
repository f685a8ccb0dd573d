package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/core/migration/domain"
	"github.com/baseorm/baseorm/internal/core/migration/manager"
)

func newMakeMigrationsCommand(app *App) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "makemigrations",
		Short: "Create a migration from schema changes",
		Long:  "Compare the schema file with the live database and write a migration unit for the differences.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMakeMigrations(cmd, app, description)
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "auto", "short description used in the migration name")
	return cmd
}

func runMakeMigrations(cmd *cobra.Command, app *App, description string) error {
	ctx := cmd.Context()
	db, m, err := app.migrator(ctx, true)
	if err != nil {
		return err
	}

	mig, err := m.MakeMigrations(ctx, db.Models(app.alias), description)
	if err != nil {
		return err
	}
	if mig == nil {
		app.UI.Info("No changes detected")
		return nil
	}

	app.UI.Success("Created migration %s", mig.Name)
	items := make([]string, len(mig.Operations))
	for i, op := range mig.Operations {
		items[i] = op.Describe()
	}
	app.UI.List(items)
	return nil
}

func newMigrateCommand(app *App) *cobra.Command {
	var plan, yes bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Long:  "Apply every pending migration unit in name order. Each unit runs in its own transaction.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, app, plan, yes)
		},
	}
	cmd.Flags().BoolVar(&plan, "plan", false, "show pending migrations and their SQL without applying them")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runMigrate(cmd *cobra.Command, app *App, plan, yes bool) error {
	ctx := cmd.Context()
	_, m, err := app.migrator(ctx, false)
	if err != nil {
		return err
	}

	pending, err := m.Plan(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		app.UI.Info("No pending migrations")
		return nil
	}

	app.UI.Info("%d pending migration(s)", len(pending))
	for i, mig := range pending {
		app.UI.Step(i+1, len(pending), mig.Name)
		if plan {
			app.UI.SQL(mig.Statements())
		}
	}
	if plan {
		return nil
	}

	ok, err := app.UI.Confirm(fmt.Sprintf("Apply %d migration(s) to %q?", len(pending), app.alias), yes)
	if err != nil {
		return err
	}
	if !ok {
		app.UI.Warning("Aborted")
		return nil
	}

	applied, err := m.Migrate(ctx)
	for _, name := range applied {
		app.UI.Success("Applied %s", name)
	}
	return err
}

func newRollbackCommand(app *App) *cobra.Command {
	var steps int
	var yes bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Reverse the most recent migrations",
		Long:  "Reverse the last applied migration units, most recent first. Units with one-way operations are refused.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(cmd, app, steps, yes)
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runRollback(cmd *cobra.Command, app *App, steps int, yes bool) error {
	ctx := cmd.Context()
	_, m, err := app.migrator(ctx, false)
	if err != nil {
		return err
	}

	ok, err := app.UI.Confirm(fmt.Sprintf("Roll back %d migration(s) on %q?", steps, app.alias), yes)
	if err != nil {
		return err
	}
	if !ok {
		app.UI.Warning("Aborted")
		return nil
	}

	reversed, err := m.Rollback(ctx, steps)
	for _, name := range reversed {
		app.UI.Success("Rolled back %s", name)
	}
	if err == nil && len(reversed) == 0 {
		app.UI.Info("Nothing to roll back")
	}
	return err
}

func newStatusCommand(app *App) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, m, err := app.migrator(ctx, false)
			if err != nil {
				return err
			}
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				app.UI.Info("No migrations")
				return nil
			}
			if markdown {
				return app.UI.Markdown(statusMarkdown(statuses))
			}
			headers, rows := statusTable(statuses)
			return app.UI.Table(headers, rows)
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the report as markdown")
	return cmd
}

func statusTable(statuses []manager.Status) ([]string, [][]string) {
	rows := make([][]string, len(statuses))
	for i, s := range statuses {
		rows[i] = []string{s.Name, stateLabel(s), appliedAt(s), fmt.Sprint(s.Operations)}
	}
	return []string{"Migration", "State", "Applied at", "Operations"}, rows
}

func statusMarkdown(statuses []manager.Status) string {
	var b strings.Builder
	applied := 0
	for _, s := range statuses {
		if s.State == domain.Applied {
			applied++
		}
	}
	fmt.Fprintf(&b, "# Migrations\n\n%d applied, %d pending.\n\n", applied, len(statuses)-applied)
	b.WriteString("| Migration | State | Applied at |\n|---|---|---|\n")
	for _, s := range statuses {
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", s.Name, stateLabel(s), appliedAt(s))
	}
	return b.String()
}

func stateLabel(s manager.Status) string {
	if s.Missing {
		return string(s.State) + " (file missing)"
	}
	return string(s.State)
}

func appliedAt(s manager.Status) string {
	if s.AppliedAt == nil {
		return "-"
	}
	return s.AppliedAt.Local().Format(time.DateTime)
}
