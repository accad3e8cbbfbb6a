package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cyp0633/caldavquery/server"
	"github.com/cyp0633/caldavquery/server/storage/query"
	"github.com/cyp0633/caldavquery/server/storage/sqlite"
	"github.com/spf13/cobra"
)

func newTranslateCmd(a *app) *cobra.Command {
	var (
		parent int64
		asSQL  bool
	)

	cmd := &cobra.Command{
		Use:   "translate <report.xml>",
		Short: "Print the query and bindings for a calendar-query or addressbook-query body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}

			rep, err := readReport(args[0], parent)
			if err != nil {
				return err
			}

			translator := cfg.Translator()
			if asSQL {
				translator = query.NewTranslator(query.WithEntity(sqlite.Entity))
			}
			q, err := translator.Translate(rep.Filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asSQL {
				text, _ := sqlite.ToSQL(q)
				fmt.Fprintln(out, text)
			} else {
				fmt.Fprintln(out, q.Text)
			}
			writeBindings(out, q)
			return nil
		},
	}

	cmd.Flags().Int64Var(&parent, "parent", 1, "collection id the query runs against")
	cmd.Flags().BoolVar(&asSQL, "sql", false, "print the SQLite statement instead of the object query")
	return cmd
}

func readReport(path string, parent int64) (*server.Report, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return server.ParseReport(string(body), parent)
}

// writeBindings prints one name=value line per binding, times in RFC 3339 UTC.
func writeBindings(w io.Writer, q query.Query) {
	for _, b := range q.Bindings {
		v := b.Value
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s=%v\n", b.Name, v)
	}
}
