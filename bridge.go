package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	maxbot "github.com/max-messenger/max-bot-api-client-go"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Config — настройки процесса, читаются из env один раз на старте.
// Отсутствие required-значения — фатальная ошибка конфигурации.
type Config struct {
	TgToken         string  `env:"TG_TOKEN,required"`
	TgChannelID     int64   `env:"TG_CHANNEL_ID,required"`
	TgModeratorIDs  []int64 `env:"TG_MODERATOR_IDS,required"`
	MaxToken        string  `env:"MAX_TOKEN,required"`
	MaxChannelID    int64   `env:"MAX_CHANNEL_ID,required"`
	MaxModeratorIDs []int64 `env:"MAX_MODERATOR_IDS,required"`

	PendingCapacity int           `env:"PENDING_CAPACITY" envDefault:"100"`
	MediaGroupQuiet time.Duration `env:"MEDIA_GROUP_QUIET" envDefault:"600ms"`

	TgWebhookURL  string `env:"TG_WEBHOOK_URL"`
	MaxWebhookURL string `env:"MAX_WEBHOOK_URL"`
	WebhookPort   string `env:"WEBHOOK_PORT" envDefault:"8443"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBPath      string `env:"DB_PATH" envDefault:"crosspost.db"`
}

// Bridge — основная структура, объединяющая зависимости.
type Bridge struct {
	cfg      Config
	repo     Repository
	tg       *TelegramAdapter
	max      *MaxAdapter
	registry *PendingRegistry
	workflow *ModerationWorkflow
	router   *DecisionRouter
	albums   *MediaGroupAggregator[*tgbotapi.Message]
	whSecret string // random path segment for webhook URLs
}

// NewBridge создаёт экземпляр Bridge и связывает компоненты.
func NewBridge(cfg Config, repo Repository, tgBot *tgbotapi.BotAPI, maxApi *maxbot.Api) *Bridge {
	// Derive webhook secret from tokens (stable across restarts)
	h := sha256.Sum256([]byte(cfg.MaxToken + tgBot.Token))
	secret := hex.EncodeToString(h[:8])

	httpClient := &http.Client{Timeout: 60 * time.Second}

	b := &Bridge{
		cfg:      cfg,
		repo:     repo,
		tg:       NewTelegramAdapter(tgBot, cfg.TgChannelID, httpClient),
		max:      NewMaxAdapter(maxApi, cfg.MaxToken, cfg.MaxChannelID, httpClient),
		registry: NewPendingRegistry(cfg.PendingCapacity),
		whSecret: secret,
	}

	moderators := map[Platform][]int64{
		PlatformTelegram: cfg.TgModeratorIDs,
		PlatformMax:      cfg.MaxModeratorIDs,
	}
	b.workflow = NewModerationWorkflow(b.registry, repo, moderators, b.tg, b.max)
	b.router = NewDecisionRouter(b.workflow)
	return b
}

func (b *Bridge) tgWebhookPath() string {
	return "/tg-webhook-" + b.whSecret
}

func (b *Bridge) maxWebhookPath() string {
	return "/max-webhook-" + b.whSecret
}

// Run запускает TG и MAX listener'ы + периодическую очистку журнала.
func (b *Bridge) Run(ctx context.Context) {
	b.max.resolveChannelLink(ctx)

	// Части TG-альбома сливаются в один кандидат после тихого периода.
	b.albums = NewMediaGroupAggregator(b.cfg.MediaGroupQuiet, func(key string, parts []*tgbotapi.Message) {
		slog.Info("TG: media group complete", "group", key, "parts", len(parts))
		b.workflow.Propose(ctx, PlatformTelegram, parts)
	})

	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.repo.CleanOldDecisions()
			}
		}
	}()

	if b.cfg.TgWebhookURL != "" || b.cfg.MaxWebhookURL != "" {
		go func() {
			addr := ":" + b.cfg.WebhookPort
			srv := &http.Server{
				Addr:         addr,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			slog.Info("Webhook server starting", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Webhook server failed", "err", err)
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); b.listenTelegram(ctx) }()
	go func() { defer wg.Done(); b.listenMax(ctx) }()
	wg.Wait()
}
