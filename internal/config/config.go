// Package config содержит логику чтения конфигурации сервиса автовозвратов.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultSettingsFile  = "storage/plugins/auto_refund.json"
	defaultBlacklistFile = "storage/cache/blacklist.json"
	defaultQueueSize     = 256
)

// Config содержит параметры конфигурации сервиса автовозвратов.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	RedisAddress       string `env:"REDIS_ADDRESS"`
	SettingsFile       string `env:"SETTINGS_FILE"`
	BlacklistFile      string `env:"BLACKLIST_FILE"`
	MarketplaceAddress string `env:"MARKETPLACE_ADDRESS"`
	MarketplaceToken   string `env:"MARKETPLACE_TOKEN"`
	ShopAccountID      int64  `env:"SHOP_ACCOUNT_ID"`
	TelegramBotToken   string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookSecret      string `env:"WEBHOOK_SECRET"`
	AdminToken         string `env:"ADMIN_TOKEN"`
	QueueSize          int    `env:"QUEUE_SIZE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "rd", "", "redis address for the blacklist")
	flag.StringVar(&cfg.SettingsFile, "s", defaultSettingsFile, "settings file path")
	flag.StringVar(&cfg.BlacklistFile, "b", defaultBlacklistFile, "blacklist file path")
	flag.StringVar(&cfg.MarketplaceAddress, "m", "", "marketplace API address")
	flag.StringVar(&cfg.MarketplaceToken, "mt", "", "marketplace API token")
	flag.Int64Var(&cfg.ShopAccountID, "shop", 0, "shop account id")
	flag.StringVar(&cfg.TelegramBotToken, "t", "", "telegram bot token for notifications")
	flag.StringVar(&cfg.WebhookSecret, "k", "", "webhook signature secret")
	flag.StringVar(&cfg.AdminToken, "at", "", "admin API token")
	flag.IntVar(&cfg.QueueSize, "q", defaultQueueSize, "event queue size")

	flag.Parse()

	overrideString(&cfg.RunAddress, envCfg.RunAddress)
	overrideString(&cfg.DatabaseURI, envCfg.DatabaseURI)
	overrideString(&cfg.RedisAddress, envCfg.RedisAddress)
	overrideString(&cfg.SettingsFile, envCfg.SettingsFile)
	overrideString(&cfg.BlacklistFile, envCfg.BlacklistFile)
	overrideString(&cfg.MarketplaceAddress, envCfg.MarketplaceAddress)
	overrideString(&cfg.MarketplaceToken, envCfg.MarketplaceToken)
	overrideString(&cfg.TelegramBotToken, envCfg.TelegramBotToken)
	overrideString(&cfg.WebhookSecret, envCfg.WebhookSecret)
	overrideString(&cfg.AdminToken, envCfg.AdminToken)
	if envCfg.ShopAccountID != 0 {
		cfg.ShopAccountID = envCfg.ShopAccountID
	}
	if envCfg.QueueSize != 0 {
		cfg.QueueSize = envCfg.QueueSize
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", cfg.QueueSize)
	}

	return cfg, nil
}

func overrideString(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}
