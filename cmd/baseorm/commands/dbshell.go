package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/core/migration/introspector"
	"github.com/baseorm/baseorm/internal/core/query/domain"
	"github.com/baseorm/baseorm/internal/debug"
	"github.com/baseorm/baseorm/internal/ui"
)

var errQuit = errors.New("quit")

// shellConn is what the shell needs from a connection.
type shellConn interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) ([]domain.Row, error)
}

func newDBShellCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dbshell",
		Short: "Run SQL interactively against the database",
		Long: "Start an interactive SQL prompt on the configured database.\n\n" +
			"Meta commands: .tables, .schema <table>, .quit",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := app.open(false)
			if err != nil {
				return err
			}
			conn, err := db.Conn(ctx, app.alias)
			if err != nil {
				return err
			}
			return runShell(ctx, app, conn)
		},
	}
}

func runShell(ctx context.Context, app *App, conn shellConn) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(s string) []string {
		var out []string
		for _, c := range []string{".tables", ".schema ", ".quit", "SELECT ", "PRAGMA "} {
			if strings.HasPrefix(c, s) {
				out = append(out, c)
			}
		}
		return out
	})

	history := historyFile()
	if history != "" {
		if f, err := app.Fs.Open(history); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	app.UI.Info("Connected to %q. Type .quit to leave.", app.alias)
	for {
		input, err := line.Prompt(app.alias + "> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if err := shellExec(ctx, app.UI, conn, input); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			app.UI.Error("%v", err)
		}
	}

	if history != "" {
		if err := app.Fs.MkdirAll(filepath.Dir(history), 0o755); err == nil {
			if f, err := app.Fs.Create(history); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return nil
}

func historyFile() string {
	path, err := homedir.Expand("~/.baseorm/shell_history")
	if err != nil {
		debug.Debug("no shell history", "error", err)
		return ""
	}
	return path
}

// shellExec runs one line of shell input.
func shellExec(ctx context.Context, p *ui.Printer, conn shellConn, input string) error {
	input = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(input), ";"))

	if strings.HasPrefix(input, ".") {
		cmd, arg, _ := strings.Cut(input, " ")
		switch cmd {
		case ".quit", ".exit":
			return errQuit
		case ".tables":
			tables, err := introspector.New(conn).ListTables(ctx)
			if err != nil {
				return err
			}
			p.List(tables)
			return nil
		case ".schema":
			arg = strings.TrimSpace(arg)
			if arg == "" {
				return fmt.Errorf(".schema needs a table name")
			}
			t, err := introspector.New(conn).Table(ctx, arg)
			if err != nil {
				return err
			}
			rows := make([][]string, len(t.Columns))
			for i, c := range t.Columns {
				def := "-"
				if c.Default != nil {
					def = *c.Default
				}
				rows[i] = []string{c.Name, c.Type, fmt.Sprint(c.NotNull), fmt.Sprint(c.PrimaryKey), def}
			}
			return p.Table([]string{"Column", "Type", "Not null", "Primary key", "Default"}, rows)
		default:
			return fmt.Errorf("unknown command %s", cmd)
		}
	}

	if returnsRows(input) {
		rows, err := conn.Query(ctx, input)
		if err != nil {
			return err
		}
		return printRows(p, rows)
	}

	res, err := conn.Exec(ctx, input)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	p.Success("%d row(s) affected", n)
	return nil
}

func returnsRows(stmt string) bool {
	verb, _, _ := strings.Cut(stmt, " ")
	switch strings.ToUpper(verb) {
	case "SELECT", "PRAGMA", "WITH", "EXPLAIN", "VALUES":
		return true
	}
	return false
}

func printRows(p *ui.Printer, rows []domain.Row) error {
	if len(rows) == 0 {
		p.Info("No rows")
		return nil
	}
	headers := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		headers = append(headers, col)
	}
	sort.Strings(headers)

	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(headers))
		for j, h := range headers {
			cells[j] = cell(row[h])
		}
		out[i] = cells
	}
	return p.Table(headers, out)
}
