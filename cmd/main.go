package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rent-reminder/internal/api"
	"rent-reminder/internal/logging"
	"rent-reminder/internal/metrics"
	"rent-reminder/internal/payment"
	"rent-reminder/internal/scheduler"
	"rent-reminder/internal/worker"
)

// @title Rent Reminder API
// @version 1.0
// @description Rent due dates, tenant reminders and online rent payments.
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "rent-reminder",
		Short:        "Rent due dates, reminders and payments",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		remindCmd(&configPath),
		lateCheckCmd(&configPath),
		tokenCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the daily scheduler and the outbox workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics.Init()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger

	// Outbox workers
	var pool *worker.WorkerPool
	if a.rabbit != nil {
		pool = worker.NewWorkerPool(a.rabbit.Channel(), a.smtp, a.cfg.Workers, a.cfg.Reminders.SendTimeout, logger)
		if err := pool.Start(ctx); err != nil {
			return err
		}
		go reportQueueDepth(ctx, a)
	}

	// Daily jobs
	if a.cfg.RemindersActive() {
		sched := scheduler.New(a.cfg.Location(), logger,
			scheduler.Job{Name: "reminders", Hour: a.cfg.Reminders.Hour, Run: a.runReminders},
			scheduler.Job{Name: "late-check", Hour: a.cfg.Reminders.LateCheckHour, Run: a.runLateCheck},
		)
		go sched.Run(ctx)
	} else {
		logger.Info("Scheduled reminders disabled")
	}

	handler := api.NewAPI(api.Services{
		Selector:   a.selector,
		Dispatcher: a.dispatcher,
		Checkout:   payment.NewCheckoutBuilder(a.provider, a.checkoutConfig(), logger),
		Reconciler: payment.NewReconciler(a.provider, logger),
		Receipts:   payment.NewReceiptNotifier(a.mail, a.cfg.Server.AppURL, logger),
		Webhook:    a.webhook,
		Tokens:     a.tokens,
	}, logger)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", a.cfg.Server.Port).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("Shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown error")
	}
	if pool != nil {
		pool.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func reportQueueDepth(ctx context.Context, a *app) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.rabbit.UpdateQueueDepth()
		}
	}
}

func (a *app) runReminders(ctx context.Context, now time.Time) error {
	results, err := a.dispatcher.RunScheduled(ctx, now)
	if err != nil {
		return err
	}
	for _, res := range results {
		a.logger.WithFields(logging.Fields{
			"owner_id": res.OwnerID,
			"total":    res.Total,
			"sent":     res.Sent,
			"failed":   res.Failed,
			"log_id":   res.LogID,
		}).Info("Scheduled reminders dispatched")
	}
	return nil
}

func (a *app) runLateCheck(ctx context.Context, now time.Time) error {
	report, err := a.late.Run(ctx, now)
	if err != nil {
		return err
	}
	a.logger.WithFields(logging.Fields{
		"checked": report.Checked,
		"updated": report.Updated,
	}).Info("Late check finished")
	return nil
}

func remindCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run the scheduled reminder pass once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.runReminders(cmd.Context(), time.Now())
		},
	}
}

func lateCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "late-check",
		Short: "Mark overdue tenants late once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.runLateCheck(cmd.Context(), time.Now())
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Print a signed API token for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			token, err := a.tokens.GenerateToken(args[0])
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
