package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "planos/internal/log"
	"planos/internal/telegram"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var withBot bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring-transaction scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stopCron, err := a.StartScheduler()
			if err != nil {
				return err
			}
			defer stopCron()

			if withBot {
				bot, err := telegram.NewBot(a.Config, a)
				if err != nil {
					return err
				}
				go func() {
					if err := bot.Start(ctx); err != nil {
						appLog.Error("telegram bot stopped", err)
					}
				}()
			}
			return a.Server().Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&withBot, "telegram", false, "also run the Telegram bot")
	return cmd
}

func newTelegramCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run only the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot, err := telegram.NewBot(a.Config, a)
			if err != nil {
				return err
			}
			return bot.Start(ctx)
		},
	}
}
