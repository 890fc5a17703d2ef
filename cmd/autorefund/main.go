// Package main запускает сервис автовозвратов магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/autorefund/internal/blacklist"
	"github.com/mmeshcher/autorefund/internal/config"
	"github.com/mmeshcher/autorefund/internal/engine"
	"github.com/mmeshcher/autorefund/internal/filestore"
	"github.com/mmeshcher/autorefund/internal/handler"
	"github.com/mmeshcher/autorefund/internal/marketplace"
	"github.com/mmeshcher/autorefund/internal/middleware"
	"github.com/mmeshcher/autorefund/internal/notify"
	"github.com/mmeshcher/autorefund/internal/repository"
	"github.com/mmeshcher/autorefund/internal/service"
	"github.com/mmeshcher/autorefund/internal/settings"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		settingsPersister  settings.Persister
		blacklistPersister blacklist.Persister
	)

	switch {
	case cfg.DatabaseURI != "":
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer repo.Close()
		settingsPersister, blacklistPersister = repo, repo
		sugar.Info("using postgres storage")
	case cfg.RedisAddress != "":
		rdb, err := repository.NewRedisBlacklist(cfg.RedisAddress)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer rdb.Close()
		settingsPersister, blacklistPersister = filestore.NewSettingsFile(cfg.SettingsFile), rdb
		sugar.Infow("using file settings and redis blacklist", "settings", cfg.SettingsFile)
	default:
		settingsPersister = filestore.NewSettingsFile(cfg.SettingsFile)
		blacklistPersister = filestore.NewBlacklistFile(cfg.BlacklistFile)
		sugar.Infow("using file storage", "settings", cfg.SettingsFile, "blacklist", cfg.BlacklistFile)
	}

	settingsStore := settings.Load(ctx, settingsPersister, logger.Named("settings"))

	blacklistStore, err := blacklist.Load(ctx, blacklistPersister, logger.Named("blacklist"))
	if err != nil {
		sugar.Fatalw("blacklist initialization error", "error", err.Error())
	}

	var sink notify.Sink = notify.NewLogSink(logger.Named("notify"))
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramSink(cfg.TelegramBotToken, logger.Named("telegram"))
		if err != nil {
			sugar.Fatalw("telegram initialization error", "error", err.Error())
		}
		sink = tg
	}
	notifier := notify.NewSender(sink, settingsStore, logger.Named("notify"))

	if cfg.MarketplaceAddress == "" {
		sugar.Warn("marketplace address is not set, every event will fail")
	}
	if cfg.ShopAccountID == 0 {
		sugar.Warn("shop account id is not set, own messages will not be filtered")
	}
	account := marketplace.NewClient(cfg.MarketplaceAddress, cfg.MarketplaceToken)

	eng := engine.New(account, settingsStore, blacklistStore, notifier, cfg.ShopAccountID, logger.Named("engine"))
	svc := service.NewService(eng, settingsStore, blacklistStore, cfg.QueueSize, logger.Named("service"))

	signature := middleware.NewSignatureMiddleware(cfg.WebhookSecret)
	h := handler.NewHandler(svc, logger, signature, cfg.AdminToken)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Последовательная обработка событий
	g.Go(func() error {
		svc.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting autorefund server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
