package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the notification worker and scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			a.dispatcher.Start()
			if cfg.Scheduler.StuckTickets != "" {
				if err := a.scheduler.ScheduleStuckTickets(cfg.Scheduler.StuckTickets); err != nil {
					return fmt.Errorf("schedule stuck ticket sweep: %w", err)
				}
				a.scheduler.Start()
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info(ctx, "starting http server", "port", cfg.Port, "auth_mode", cfg.AuthMode())
				if err := a.router.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			a.logger.Info(shutdownCtx, "shutting down")
			if err := a.router.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(shutdownCtx, "http shutdown failed", "error", err)
			}
			a.scheduler.Stop(shutdownCtx)
			return a.dispatcher.Close(shutdownCtx)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "maximum time to drain requests and notifications")
	return cmd
}
