package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAdapter реализует PlatformAdapter поверх Bot API.
type TelegramAdapter struct {
	bot        *tgbotapi.BotAPI
	channelID  int64
	httpClient *http.Client

	// Свои же публикации в канал приходят обратно как channel posts;
	// запоминаем их id, чтобы не предложить модераторам их же одобренный пост.
	ownMu    sync.Mutex
	ownPosts map[int]struct{}
}

func NewTelegramAdapter(bot *tgbotapi.BotAPI, channelID int64, httpClient *http.Client) *TelegramAdapter {
	return &TelegramAdapter{
		bot:        bot,
		channelID:  channelID,
		httpClient: httpClient,
		ownPosts:   make(map[int]struct{}),
	}
}

func (a *TelegramAdapter) Platform() Platform { return PlatformTelegram }
func (a *TelegramAdapter) Title() string      { return "Telegram" }

func (a *TelegramAdapter) rememberOwn(messageID int) {
	a.ownMu.Lock()
	a.ownPosts[messageID] = struct{}{}
	a.ownMu.Unlock()
}

// isOwnPost проверяет и забывает id: каждый свой пост приходит апдейтом
// не более одного раза.
func (a *TelegramAdapter) isOwnPost(messageID int) bool {
	a.ownMu.Lock()
	defer a.ownMu.Unlock()
	if _, ok := a.ownPosts[messageID]; ok {
		delete(a.ownPosts, messageID)
		return true
	}
	return false
}

// FetchPayload скачивает фото поста. Недокачанное фото пропускается с логом;
// если не выжило ни одно, но есть подпись — пост деградирует до текста.
func (a *TelegramAdapter) FetchPayload(ctx context.Context, source any) (Payload, error) {
	msgs, ok := source.([]*tgbotapi.Message)
	if !ok || len(msgs) == 0 {
		return Payload{}, &FetchError{Platform: PlatformTelegram, Err: errors.New("bad source ref")}
	}

	var p Payload
	for _, msg := range msgs {
		if p.Caption == "" && msg.Caption != "" {
			p.Caption = msg.Caption
		}
		if len(msg.Photo) == 0 {
			continue
		}
		// Последний размер — самый крупный.
		largest := msg.Photo[len(msg.Photo)-1]
		data, err := a.downloadFile(ctx, largest.FileID)
		if err != nil {
			slog.Error("TG photo download failed, skipping", "file", largest.FileID, "err", err)
			continue
		}
		p.Photos = append(p.Photos, Photo{Data: data})
	}

	if p.TextOnly() && p.Caption == "" {
		p.Caption = msgs[0].Text
	}
	return p, nil
}

func (a *TelegramAdapter) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := a.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("tg getFileURL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("tg download status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *TelegramAdapter) Publish(ctx context.Context, p Payload) (string, error) {
	if p.TextOnly() {
		if p.Caption == "" {
			return "", &PublishError{Platform: PlatformTelegram, Err: errNoContent}
		}
		sent, err := a.bot.Send(tgbotapi.NewMessage(a.channelID, p.Caption))
		if err != nil {
			return "", &PublishError{Platform: PlatformTelegram, Err: err}
		}
		a.rememberOwn(sent.MessageID)
		return tgPostLink(sent.Chat.UserName, sent.Chat.ID, sent.MessageID), nil
	}

	var media []interface{}
	for i, ph := range p.Photos {
		var file tgbotapi.RequestFileData
		if ph.URL != "" {
			file = tgbotapi.FileURL(ph.URL)
		} else {
			file = tgbotapi.FileBytes{Name: fmt.Sprintf("photo_%d.jpg", i+1), Bytes: ph.Data}
		}
		item := tgbotapi.NewInputMediaPhoto(file)
		if i == 0 {
			item.Caption = p.Caption
		}
		media = append(media, item)
	}

	sent, err := a.bot.SendMediaGroup(tgbotapi.NewMediaGroup(a.channelID, media))
	if err != nil {
		return "", &PublishError{Platform: PlatformTelegram, Err: err}
	}
	if len(sent) == 0 {
		return "", &PublishError{Platform: PlatformTelegram, Err: errors.New("empty media group response")}
	}
	for _, m := range sent {
		a.rememberOwn(m.MessageID)
	}
	first := sent[0]
	return tgPostLink(first.Chat.UserName, first.Chat.ID, first.MessageID), nil
}

// Notify пересылает модератору оригинальные сообщения поста и шлёт prompt
// с кнопками, несущими токен кандидата.
func (a *TelegramAdapter) Notify(ctx context.Context, moderatorID int64, promptText string, c *Candidate) (PromptHandle, error) {
	msgs, ok := c.Source.([]*tgbotapi.Message)
	if !ok || len(msgs) == 0 {
		return PromptHandle{}, errors.New("bad source ref")
	}

	for _, msg := range msgs {
		fwd := tgbotapi.NewForward(moderatorID, msg.Chat.ID, msg.MessageID)
		if _, err := a.bot.Send(fwd); err != nil {
			// Превью не дошло — prompt всё равно шлём, решать можно и без него.
			slog.Error("TG forward to moderator failed", "moderator", moderatorID, "err", err)
			break
		}
	}

	prompt := tgbotapi.NewMessage(moderatorID, promptText)
	prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnApprove, tgCallbackData(VerdictApprove, c.Token)),
			tgbotapi.NewInlineKeyboardButtonData(btnIgnore, tgCallbackData(VerdictIgnore, c.Token)),
		),
	)
	sent, err := a.bot.Send(prompt)
	if err != nil {
		return PromptHandle{}, err
	}
	return PromptHandle{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

func (a *TelegramAdapter) EditPrompt(ctx context.Context, h PromptHandle, text, link string) error {
	if link != "" {
		kbd := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(msgOpenPost, link)),
		)
		_, err := a.bot.Send(tgbotapi.NewEditMessageTextAndMarkup(h.ChatID, h.MessageID, text, kbd))
		return err
	}
	_, err := a.bot.Send(tgbotapi.NewEditMessageText(h.ChatID, h.MessageID, text))
	return err
}

func (b *Bridge) listenTelegram(ctx context.Context) {
	var updates tgbotapi.UpdatesChannel

	if b.cfg.TgWebhookURL != "" {
		whPath := b.tgWebhookPath()
		whURL := strings.TrimRight(b.cfg.TgWebhookURL, "/") + whPath
		wh, err := tgbotapi.NewWebhook(whURL)
		if err != nil {
			slog.Error("TG webhook config error", "err", err)
			return
		}
		if _, err := b.tg.bot.Request(wh); err != nil {
			slog.Error("TG set webhook failed", "err", err)
			return
		}
		updates = b.tg.bot.ListenForWebhook(whPath)
		slog.Info("TG webhook mode")
	} else {
		// Удаляем webhook если был, переключаемся на polling
		b.tg.bot.Request(tgbotapi.DeleteWebhookConfig{})
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.tg.bot.GetUpdatesChan(u)
		slog.Info("TG polling mode")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				slog.Warn("TG updates channel closed")
				return
			}

			if update.CallbackQuery != nil {
				b.handleTgCallback(ctx, update.CallbackQuery)
				continue
			}

			if update.ChannelPost != nil {
				b.handleTgChannelPost(ctx, update.ChannelPost)
				continue
			}

			if update.Message != nil {
				b.handleTgPrivate(ctx, update.Message)
			}
		}
	}
}

// handleTgChannelPost превращает пост наблюдаемого канала в кандидата.
// Части медиа-альбома копятся в агрегаторе, одиночные посты идут сразу.
func (b *Bridge) handleTgChannelPost(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.ID != b.cfg.TgChannelID {
		return
	}
	if b.tg.isOwnPost(msg.MessageID) {
		return
	}

	if msg.MediaGroupID != "" {
		b.albums.Add(msg.MediaGroupID, msg)
		return
	}

	slog.Info("TG: new channel post", "msg", msg.MessageID)
	b.workflow.Propose(ctx, PlatformTelegram, []*tgbotapi.Message{msg})
}

func (b *Bridge) handleTgCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !isModerator(b.cfg.TgModeratorIDs, cq.From.ID) {
		slog.Warn("TG callback from non-moderator", "user", cq.From.ID)
		return
	}
	if cq.Message == nil {
		slog.Error("TG callback without message", "id", cq.ID)
		return
	}

	// Снимаем "часики" на кнопке сразу, решение может идти долго.
	if _, err := b.tg.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		slog.Error("TG callback ack failed", "err", err)
	}

	prompt := PromptHandle{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
	b.router.DispatchTelegram(ctx, cq.Data, cq.From.ID, prompt)
}

// handleTgPrivate — сервисные команды модераторов в личке.
func (b *Bridge) handleTgPrivate(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.Type != "private" || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch text {
	case "/start", "/help":
		b.tg.bot.Send(tgbotapi.NewMessage(msg.Chat.ID,
			"Бот-модератор кросспостинга между Telegram и MAX.\n\n"+
				"Новые посты из связанных каналов приходят сюда на одобрение.\n"+
				"Команды:\n"+
				"/stats — последние решения модераторов"))
	case "/stats":
		if !isModerator(b.cfg.TgModeratorIDs, msg.From.ID) {
			return
		}
		records, err := b.repo.RecentDecisions(10)
		if err != nil {
			slog.Error("decision log read failed", "err", err)
			return
		}
		b.tg.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, formatDecisionLog(records)))
	}
}
