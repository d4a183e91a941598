package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recurring-planner/internal/bot"
	"recurring-planner/internal/service"
)

const (
	refreshTimeout = 5 * time.Minute
	reportTimeout  = 30 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled jobs and the Telegram bot",
		Long: `Run the planner: a daily refresh materializes recurring task instances
over the configured horizon, a daily cleanup purges resolved instances and old
history, and when TELEGRAM_TOKEN is set the bot serves users and sends reports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	scheduler := service.NewSchedulerService(a.cfg.Location)

	refreshID, err := scheduler.ScheduleDaily(a.cfg.RefreshTime, func() { a.runRefresh(a.cfg.RefreshHorizonDays) })
	if err != nil {
		return err
	}
	cleanupID, err := scheduler.ScheduleDaily(a.cfg.CleanupTime, a.runCleanup)
	if err != nil {
		return err
	}

	var telegramBot *bot.Bot
	if a.cfg.TelegramToken != "" {
		telegramBot, err = bot.New(a.cfg.TelegramToken, bot.Deps{
			Users:      a.users,
			Categories: a.categorySvc,
			Tasks:      a.taskSvc,
			Instances:  a.instanceSvc,
			Reminders:  a.reminderSvc,
		}, a.cfg.Location)
		if err != nil {
			return err
		}
		if a.cfg.ReportInterval > 0 {
			if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval, func() {
				jobCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
				defer cancel()
				if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("report: %v", err)
				}
			}); err != nil {
				return err
			}
		}
	} else {
		log.Println("[warn] TELEGRAM_TOKEN is empty, running without the bot")
	}

	// Catch up on a missed refresh before waiting for the first tick.
	a.runRefresh(a.cfg.RefreshHorizonDays)

	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("[info] next refresh at %s, next cleanup at %s",
		scheduler.NextRun(refreshID).Format(time.RFC3339), scheduler.NextRun(cleanupID).Format(time.RFC3339))

	log.Println("Recurring planner started.")
	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	} else {
		<-ctx.Done()
	}
	log.Println("Shutdown complete.")
	return nil
}

func (a *app) runRefresh(horizonDays int) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if _, err := a.materializer.GenerateDailyRecurringTasks(ctx, horizonDays); err != nil {
		log.Printf("[warn] refresh: %v", err)
	}
}

func (a *app) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if _, err := a.retention.CleanupOldInstances(ctx, a.cfg.InstanceRetentionDays); err != nil {
		log.Printf("[warn] instance cleanup: %v", err)
	}
	if _, err := a.retention.CleanupHistory(ctx, a.cfg.HistoryRetentionDays); err != nil {
		log.Printf("[warn] history cleanup: %v", err)
	}
}
