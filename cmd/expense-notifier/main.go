package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"expensebot/internal/amqp"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	apphttp "expensebot/internal/http"
	applog "expensebot/internal/log"
	"expensebot/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentNotifier)
	logger.Info("Starting expense-notifier")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateNotifier)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		cli.Fatal(logger, "Failed to connect to Telegram", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	var consuming atomic.Bool
	srv := apphttp.NewServer(apphttp.Options{
		Addr:   ":" + cfg.Port,
		Logger: logger,
		Ready: func(context.Context) error {
			if !consuming.Load() {
				return errors.New("not consuming")
			}
			return nil
		},
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		consuming.Store(false)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err)
		}
	}()

	n := notify.New(api, cfg.NotifyChatID, cfg.CurrencySymbol)
	go func() {
		consuming.Store(true)
		err := client.ConsumeEvents(applog.NewContext(ctx, logger), n.Handle)
		consuming.Store(false)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption stopped", applog.FieldError, err)
		}
	}()

	logger.Info("Forwarding expense events", "queue", cfg.AMQPQueue, applog.FieldChatID, cfg.NotifyChatID)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Expense-notifier stopped")
}
