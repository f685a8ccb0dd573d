package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baseorm/baseorm/internal/core/query/filterexpr"
)

type queryOptions struct {
	excludes []string
	order    []string
	values   []string
	limit    int
	offset   int
	count    bool
	showSQL  bool
}

func newQueryCommand(app *App) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <model> [field__lookup=value ...]",
		Short: "Run a filtered query against a model",
		Long: "Build a query set from lookup expressions and print the matching rows.\n\n" +
			"Values are numbers, true, false, null, \"quoted strings\", bare words or [lists].",
		Example: `  baseorm query Author age__gte=18 --order -age --limit 10
  baseorm query Post title__icontains=go --exclude "author__in=[1, 2]" --count`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, app, args[0], args[1:], opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.excludes, "exclude", "x", nil, "exclude rows matching this expression (repeatable)")
	f.StringArrayVarP(&opts.order, "order", "o", nil, "order by field, prefix with - for descending (repeatable)")
	f.StringSliceVar(&opts.values, "values", nil, "only return these fields")
	f.IntVarP(&opts.limit, "limit", "l", 0, "maximum number of rows")
	f.IntVar(&opts.offset, "offset", 0, "rows to skip")
	f.BoolVar(&opts.count, "count", false, "print the number of matching rows")
	f.BoolVar(&opts.showSQL, "sql", false, "print the statement instead of running it")
	return cmd
}

func runQuery(cmd *cobra.Command, app *App, model string, filters []string, opts queryOptions) error {
	ctx := cmd.Context()
	db, err := app.open(true)
	if err != nil {
		return err
	}
	objects, err := db.Objects(model)
	if err != nil {
		return err
	}

	include, err := filterexpr.ParseAll(filters)
	if err != nil {
		return err
	}
	exclude, err := filterexpr.ParseAll(opts.excludes)
	if err != nil {
		return err
	}

	qs := objects.Filter(include...).Exclude(exclude...)
	if len(opts.order) > 0 {
		qs = qs.OrderBy(opts.order...)
	}
	if opts.limit > 0 {
		qs = qs.Limit(opts.limit)
	}
	if opts.offset > 0 {
		qs = qs.Offset(opts.offset)
	}
	if len(opts.values) > 0 {
		qs = qs.Values(opts.values...)
	}

	if opts.showSQL {
		st := qs.Statement()
		fmt.Fprintln(app.UI.Out, st.SQL)
		if len(st.Params) > 0 {
			fmt.Fprintf(app.UI.Out, "-- params: %v\n", st.Params)
		}
		return nil
	}

	if opts.count {
		n, err := qs.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.UI.Out, n)
		return nil
	}

	headers := opts.values
	if len(headers) == 0 {
		for _, f := range objects.Model().Fields {
			headers = append(headers, f.Name)
		}
	}
	tuples, err := qs.ValuesList(ctx, opts.values...)
	if err != nil {
		return err
	}
	if len(tuples) == 0 {
		app.UI.Info("No rows")
		return nil
	}
	rows := make([][]string, len(tuples))
	for i, t := range tuples {
		row := make([]string, len(t))
		for j, v := range t {
			row[j] = cell(v)
		}
		rows[i] = row
	}
	return app.UI.Table(headers, rows)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case string:
		return strings.ReplaceAll(t, "\n", `\n`)
	}
	return fmt.Sprint(v)
}
