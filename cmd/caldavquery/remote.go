package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyp0633/caldavquery/internal/httpclient"
	"github.com/spf13/cobra"
)

func newRemoteCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a running caldavquery server",
	}
	cmd.PersistentFlags().StringVarP(&username, "user", "u", "", "basic auth username")
	cmd.PersistentFlags().StringVarP(&password, "password", "p", "", "basic auth password")

	// client builds an HTTP client for the collection URL given on the command line.
	client := func(collectionURL string) (httpclient.Client, error) {
		cfg, err := a.config()
		if err != nil {
			return nil, err
		}
		logger := cfg.Logger()

		if !strings.HasSuffix(collectionURL, "/") {
			collectionURL += "/"
		}
		base, err := url.Parse(collectionURL)
		if err != nil {
			return nil, fmt.Errorf("invalid collection URL: %w", err)
		}
		transport := httpclient.NewTransport(username, password, nil, logger)
		return httpclient.New(&http.Client{Transport: transport}, *base, logger)
	}

	put := &cobra.Command{
		Use:   "put <collection-url> <file>...",
		Short: "Upload .ics and .vcf files into a remote collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(args[0])
			if err != nil {
				return err
			}
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				name := filepath.Base(path)
				etag, err := c.Put(cmd.Context(), url.PathEscape(name), mediaType(name), data, "")
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, etag)
			}
			return nil
		},
	}

	query := &cobra.Command{
		Use:   "query <collection-url> <report.xml>",
		Short: "Send a calendar-query or addressbook-query REPORT and print matching hrefs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client(args[0])
			if err != nil {
				return err
			}
			body, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			ms, err := c.Report(cmd.Context(), "", body)
			if err != nil {
				return err
			}
			for _, r := range ms.Responses {
				fmt.Fprintln(cmd.OutOrStdout(), r.Href)
			}
			return nil
		},
	}

	cmd.AddCommand(put, query)
	return cmd
}

func mediaType(name string) string {
	if collectionKind(name).String() == "card" {
		return "text/vcard"
	}
	return "text/calendar"
}
