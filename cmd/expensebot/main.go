package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"expensebot/internal/amqp"
	"expensebot/internal/backend"
	"expensebot/internal/bot"
	"expensebot/internal/charts"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	"expensebot/internal/core"
	apphttp "expensebot/internal/http"
	applog "expensebot/internal/log"
	"expensebot/internal/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	logger.Info("Starting expensebot")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	stores, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	weekStart, err := core.ParseWeekday(cfg.WeekStart)
	if err != nil {
		cli.Fatal(logger, "Invalid week start", err)
	}
	opts := services.Options{
		Location:     cfg.Location(),
		WeekStart:    weekStart,
		BudgetAlerts: cfg.EnableBudgetAlerts,
	}

	// Events are optional; without AMQP_URL nothing is published.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		opts.Publisher = publisher
		logger.Info("Publishing expense events", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewExpenseService(stores.Expenses, stores.Budgets, opts)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		cli.Fatal(logger, "Failed to connect to Telegram", err)
	}
	logger.Info("Authorized on Telegram", applog.FieldUsername, api.Self.UserName)

	botOpts := bot.Options{
		Categories: cfg.Categories,
		Currency:   cfg.CurrencySymbol,
		ListLimit:  cfg.ListLimit,
		Logger:     logger,
	}
	if cfg.EnableCharts {
		botOpts.Charts = charts.NewGenerator(cfg.CurrencySymbol)
	}
	b := bot.New(api, svc, botOpts)

	var ready atomic.Bool
	serverOpts := apphttp.Options{
		Addr:   ":" + cfg.Port,
		Logger: logger,
		Ready: func(context.Context) error {
			if !ready.Load() {
				return errors.New("bot not started")
			}
			return nil
		},
	}
	if cfg.TelegramMode == "webhook" {
		link, path, err := webhookEndpoint(cfg.TelegramWebhookURL)
		if err != nil {
			cli.Fatal(logger, "Invalid webhook URL", err)
		}
		cfg.TelegramWebhookURL = link
		serverOpts.Webhook = b
		serverOpts.WebhookPath = path
		serverOpts.WebhookSecret = cfg.TelegramWebhookSecret
	}
	srv := apphttp.NewServer(serverOpts)

	// Closed once every polled update has been handled.
	runDone := make(chan struct{})
	if cfg.TelegramMode != "polling" {
		close(runDone)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		ready.Store(false)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if cfg.TelegramMode == "polling" {
			api.StopReceivingUpdates()
		}
		select {
		case <-runDone:
		case <-ctx.Done():
			logger.Warn("Commands still running at shutdown deadline")
		}
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				logger.Error("AMQP close error", applog.FieldError, err)
			}
		}
		if err := stores.Close(); err != nil {
			logger.Error("Backend close error", applog.FieldError, err)
		}
	})

	go func() {
		logger.Info("Starting HTTP server", "port", cfg.Port, "mode", cfg.TelegramMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err)
		}
	}()

	switch cfg.TelegramMode {
	case "webhook":
		if err := registerWebhook(api, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			cli.Fatal(logger, "Failed to register webhook", err)
		}
		logger.Info("Webhook registered", applog.FieldPath, serverOpts.WebhookPath)
		ready.Store(true)
	default:
		// A leftover webhook makes getUpdates fail.
		if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn("Failed to delete webhook", applog.FieldError, err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)
		ready.Store(true)
		logger.Info("Polling for updates")
		go func() {
			defer close(runDone)
			b.Run(ctx, updates)
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Expensebot stopped")
}

// webhookEndpoint returns the URL to register with Telegram and the route the
// server serves it on. A URL without a path gets DefaultWebhookPath appended.
func webhookEndpoint(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook URL: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = apphttp.DefaultWebhookPath
	}
	return u.String(), u.Path, nil
}

// registerWebhook calls setWebhook with a secret_token so Telegram echoes it
// in apphttp.WebhookSecretHeader. tgbotapi.WebhookConfig has no such field.
func registerWebhook(api *tgbotapi.BotAPI, link, secret string) error {
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", link)
	params.AddNonEmpty("secret_token", secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
