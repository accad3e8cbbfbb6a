package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/caldavquery/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve calendar-query and addressbook-query REPORTs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := cfg.OpenStore(ctx, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			srv, err := server.New(store, cfg.BaseURI, server.WithLogger(logger))
			if err != nil {
				return err
			}

			httpServer := &http.Server{Addr: cfg.Addr, Handler: srv}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			logger.Info("server listening", "addr", cfg.Addr, "base_uri", cfg.BaseURI, "driver", cfg.Driver)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("base-uri", "/dav", "path prefix the server is mounted at")
	a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	a.v.BindPFlag("base-uri", cmd.Flags().Lookup("base-uri"))
	return cmd
}
