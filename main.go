package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v6"

	maxbot "github.com/max-messenger/max-bot-api-client-go"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("Ошибка конфигурации", "err", err)
		os.Exit(1)
	}

	var repo Repository
	var err error
	if cfg.DatabaseURL != "" {
		repo, err = NewPostgresRepo(cfg.DatabaseURL)
		if err != nil {
			slog.Error("PostgreSQL error", "err", err)
			os.Exit(1)
		}
		slog.Info("Журнал решений: PostgreSQL")
	} else {
		repo, err = NewSQLiteRepo(cfg.DBPath)
		if err != nil {
			slog.Error("SQLite error", "err", err)
			os.Exit(1)
		}
		slog.Info("Журнал решений: SQLite", "path", cfg.DBPath)
	}
	defer repo.Close()

	tgBot, err := tgbotapi.NewBotAPI(cfg.TgToken)
	if err != nil {
		slog.Error("TG bot error", "err", err)
		os.Exit(1)
	}
	slog.Info("Telegram бот запущен", "username", tgBot.Self.UserName)

	maxApi, err := maxbot.New(cfg.MaxToken)
	if err != nil {
		slog.Error("MAX bot error", "err", err)
		os.Exit(1)
	}
	maxInfo, err := maxApi.Bots.GetBot(context.Background())
	if err != nil {
		slog.Error("MAX bot info error", "err", err)
		os.Exit(1)
	}
	slog.Info("MAX бот запущен", "name", maxInfo.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Завершение...")
		cancel()
	}()

	bridge := NewBridge(cfg, repo, tgBot, maxApi)
	bridge.Run(ctx)
	slog.Info("Bridge остановлен")
}
