// Command budgeter runs the spending bot: the webhook front-end, the daily
// reminder scheduler and the access-cache janitor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeter/internal/backend"
	"budgeter/internal/bot"
	"budgeter/internal/cache"
	"budgeter/internal/cli"
	"budgeter/internal/config"
	apphttp "budgeter/internal/http"
	"budgeter/internal/log"
	"budgeter/internal/scheduler"
	"budgeter/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.MustLoad()
	if err := run(cfg, logger); err != nil {
		logger.Error("budgeter stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	res, err := backend.NewFactory(logger).Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize backends: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backends", log.FieldError, err)
		}
	}()

	loc := cfg.Location()
	sched := scheduler.New(loc, cfg.SchedulerTick, logger)

	b := bot.New(bot.Config{
		ReminderTime:   cfg.Reminder(),
		AdminChatID:    cfg.AdminChatID,
		Currency:       cfg.Currency,
		StatsWindow:    cfg.StatsWindowDays,
		ServiceAccount: res.ServiceAccount,
	}, bot.Deps{
		Sessions:  res.Sessions,
		Ledgers:   res.Ledgers,
		Reminders: sched,
		Events:    res.Events,
		Messenger: res.Messenger,
		Clock:     services.SystemClock(loc),
		Logger:    logger,
	})

	restored, err := b.RestoreReminders(ctx)
	if err != nil {
		// The bot still works; users can re-enable reminders with /remind.
		logger.Error("Failed to restore reminders", log.FieldError, err)
	}

	srv := apphttp.NewServer(":"+cfg.Port, b, logger, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Ready:             res.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgeter server",
			"port", cfg.Port,
			"ledger_backend", cfg.LedgerBackend,
			"session_backend", cfg.SessionBackend,
			"events_backend", cfg.EventsBackend,
			"reminders_restored", restored)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if len(res.Caches) > 0 {
		g.Go(func() error {
			removed := cache.NewJanitor(5*time.Minute, res.Caches...).Run(gctx)
			logger.Debug("cache janitor stopped", "removed", removed)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
