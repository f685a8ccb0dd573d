package commands

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/adapters/database"
	"github.com/baseorm/baseorm/internal/adapters/telemetry"
)

// Version information (set at build time).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// MinimumEngine is the oldest SQLite library the generated SQL runs on.
const MinimumEngine = ">= 3.8.3"

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := app.UI.Out
			fmt.Fprintf(out, "baseorm version %s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

			// in-memory: probing must not create the database file
			cfg, _ := app.cfg.Database(app.alias)
			conn, err := database.Open(cmd.Context(), "version", database.Config{Driver: cfg.Driver, DSN: ":memory:"}, telemetry.Noop{})
			if err != nil {
				fmt.Fprintf(out, "  SQLite: unavailable (%v)\n", err)
				return nil
			}
			defer conn.Close()
			engine, err := conn.EngineVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  SQLite: %s\n", engine)

			constraint, err := version.NewConstraint(MinimumEngine)
			if err != nil {
				return err
			}
			if !constraint.Check(engine) {
				app.UI.Warning("SQLite %s is older than required (%s)", engine, MinimumEngine)
			}
			return nil
		},
	}
}
