package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_invest_bot/internal/backend"
	"tg_invest_bot/internal/config"
	"tg_invest_bot/internal/flow"
	"tg_invest_bot/internal/health"
	"tg_invest_bot/internal/logging"
	"tg_invest_bot/internal/session"
	"tg_invest_bot/internal/telegram"
)

const (
	storeConnectTimeout     = 10 * time.Second
	storeCloseTimeout       = 5 * time.Second
	httpShutdownTimeout     = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":           "startup",
		"session_backend": cfg.SessionBackend,
		"api_base":        cfg.APIBase,
		"webhook":         cfg.UseWebhook(),
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	store, err := session.Open(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("session store setup error")
		fmt.Fprintf(os.Stderr, "session store setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithFields(logging.Fields{
		"event":   "store_ready",
		"backend": cfg.SessionBackend,
	}).Info("session store ready")

	apiClient, err := backend.NewClient(cfg)
	if err != nil {
		logger.WithError(err).Error("platform client setup error")
		fmt.Fprintf(os.Stderr, "platform client setup error: %v\n", err)
		os.Exit(1)
	}

	interpreter := flow.NewInterpreter(store, apiClient, cfg, logger)

	tgClient, err := telegram.NewClient(cfg, logger, interpreter)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	srv := health.NewServer(cfg.HTTPPort, store, logger)
	if cfg.UseWebhook() {
		srv.Mount(tgClient.WebhookPath(), tgClient.WebhookHandler())
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.WithError(err).Error("http server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		if cfg.UseWebhook() {
			if err := tgClient.StartWebhook(telegramCtx); err != nil {
				logger.WithError(err).Error("telegram webhook error")
			}
		} else {
			tgClient.Start(telegramCtx)
		}
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram updates")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := srv.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("http server shutdown error")
	}
	cancelHTTP()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), storeCloseTimeout)
	if err := store.Close(closeCtx); err != nil {
		logger.WithError(err).Error("session store close error")
	} else {
		logger.WithField("event", "store_closed").Info("session store closed")
	}
	cancelClose()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
