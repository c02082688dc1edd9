package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"day-organiser/internal/bot"
	"day-organiser/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the daily digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			reminderSvc := service.NewReminderService(a.session)
			tg, err := bot.New(a.cfg.TelegramToken, a.users, a.session, reminderSvc)
			if err != nil {
				return errors.Wrap(err, "bot")
			}

			report := func() {
				jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := tg.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					logrus.WithError(err).Error("daily report")
				}
			}

			scheduler := service.NewSchedulerService(time.Local)
			daily, err := scheduler.ScheduleDaily("daily report", a.cfg.ReportTime, report)
			if err != nil {
				return err
			}
			if interval := a.cfg.ReportInterval(); interval > 0 {
				if _, err := scheduler.ScheduleInterval("interval report", interval, report); err != nil {
					return err
				}
			}
			scheduler.Start()
			defer scheduler.Stop()
			logrus.WithField("next", scheduler.NextRun(daily).Format(time.RFC3339)).Info("daily report scheduled")

			logrus.Info("Day organiser bot started.")
			if err := tg.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "bot stopped")
			}
			logrus.Info("Shutdown complete.")
			return nil
		},
	}
}
