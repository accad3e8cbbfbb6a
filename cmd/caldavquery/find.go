package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFindCmd(a *app) *cobra.Command {
	var parent int64

	cmd := &cobra.Command{
		Use:   "find <report.xml>",
		Short: "Run a calendar-query or addressbook-query body and print matching UIDs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			rep, err := readReport(args[0], parent)
			if err != nil {
				return err
			}

			store, closeStore, err := cfg.OpenStore(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeStore()

			uids, err := store.FindItems(cmd.Context(), rep.Filter)
			if err != nil {
				return err
			}
			if rep.Limit > 0 && len(uids) > rep.Limit {
				uids = uids[:rep.Limit]
			}
			for _, uid := range uids {
				fmt.Fprintln(cmd.OutOrStdout(), uid)
			}
			logger.Debug("find finished", "matches", len(uids))
			return nil
		},
	}

	cmd.Flags().Int64Var(&parent, "parent", 1, "collection id the query runs against")
	return cmd
}
