package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := flags.openDesk(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer desk.Close()

			if addr == "" {
				cfg, err := flags.loadConfig()
				if err != nil {
					return err
				}

				addr = cfg.HTTP.Addr
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           desk.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)

			go func() {
				desk.Logger.Info("coopdesk.http.listening", "addr", addr)
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}

				return fmt.Errorf("server error: %w", err)
			case sig := <-shutdown:
				desk.Logger.Info("coopdesk.http.shutdown", "signal", sig.String())

				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
				}

				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default: http.addr from config)")

	return cmd
}
