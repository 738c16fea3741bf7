/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"doora/internal/bootstrap/logging"
	"doora/internal/errs"
	"doora/internal/metrics"
)

// serveCmd runs the HTTP API and the convergence watchdog until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the delegation API server and watchdog",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := deps.App.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		metrics.Register()

		runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps.Runner.Start(runCtx)
		defer deps.Runner.Stop()

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(runCtx, "http server listening", slog.String("addr", deps.Server.Addr()))
			serveErr <- deps.Server.Start()
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return errs.Wrap(err, "serve http")
			}
			return nil
		case <-runCtx.Done():
		}

		logging.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := deps.Server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
