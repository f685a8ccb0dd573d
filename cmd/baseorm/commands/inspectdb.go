package commands

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/adapters/telemetry"
	"github.com/baseorm/baseorm/internal/core/migration/introspector"
	"github.com/baseorm/baseorm/internal/core/schema"
)

func newInspectDBCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspectdb [database-file]",
		Short: "Write a schema file describing an existing database",
		Long: "Read the tables of the configured database, or of the given SQLite file, and print " +
			"the matching schema document.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, closeConn, err := inspectTarget(ctx, app, args)
			if err != nil {
				return err
			}
			defer closeConn()

			catalog, err := introspector.New(conn).Inspect(ctx)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := schema.Encode(&buf, introspector.Models(catalog)); err != nil {
				return err
			}

			if output == "" {
				_, err := app.UI.Out.Write(buf.Bytes())
				return err
			}
			if err := afero.WriteFile(app.Fs, output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			app.UI.Success("Wrote %d model(s) to %s", len(catalog.Tables), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to this file instead of stdout")
	return cmd
}

// inspectTarget opens the file named in args, or the configured alias.
func inspectTarget(ctx context.Context, app *App, args []string) (introspector.Queryer, func(), error) {
	if len(args) == 1 {
		if ok, err := afero.Exists(app.Fs, args[0]); err != nil || !ok {
			return nil, nil, fmt.Errorf("database file %s not found", args[0])
		}
		conn, err := database.Open(ctx, "inspect", database.Config{DSN: args[0]}, telemetry.Noop{})
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", args[0], err)
		}
		return conn, func() { conn.Close() }, nil
	}
	db, err := app.open(false)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Conn(ctx, app.alias)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() {}, nil
}
