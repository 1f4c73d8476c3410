package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	maxbot "github.com/max-messenger/max-bot-api-client-go"
	maxschemes "github.com/max-messenger/max-bot-api-client-go/schemes"
)

// MaxAdapter реализует PlatformAdapter поверх MAX Bot API. Текст и простые
// правки идут через SDK, всё с вложениями и клавиатурами — напрямую через
// HTTP (см. upload.go).
type MaxAdapter struct {
	api        *maxbot.Api
	token      string
	channelID  int64
	httpClient *http.Client

	// Публичная ссылка канала: у MAX нет ссылок на отдельные сообщения,
	// поэтому кнопка «открыть» ведёт в сам канал.
	channelLink string
}

func NewMaxAdapter(api *maxbot.Api, token string, channelID int64, httpClient *http.Client) *MaxAdapter {
	return &MaxAdapter{
		api:        api,
		token:      token,
		channelID:  channelID,
		httpClient: httpClient,
	}
}

func (a *MaxAdapter) Platform() Platform { return PlatformMax }
func (a *MaxAdapter) Title() string      { return "MAX" }

func (a *MaxAdapter) resolveChannelLink(ctx context.Context) {
	chat, err := a.api.Chats.GetChat(ctx, a.channelID)
	if err != nil {
		slog.Warn("MAX chat info failed, post links disabled", "err", err)
		return
	}
	a.channelLink = chat.Link
}

// FetchPayload собирает CDN-ссылки фото поста; скачивать ничего не нужно,
// MAX отдаёт вложения по URL.
func (a *MaxAdapter) FetchPayload(ctx context.Context, source any) (Payload, error) {
	msg, ok := source.(*maxschemes.Message)
	if !ok {
		return Payload{}, &FetchError{Platform: PlatformMax, Err: errors.New("bad source ref")}
	}

	p := Payload{Caption: msg.Body.Text}
	for _, att := range msg.Body.Attachments {
		photo, ok := att.(*maxschemes.PhotoAttachment)
		if !ok {
			continue
		}
		if photo.Payload.Url == "" {
			slog.Error("MAX photo attachment without url, skipping", "mid", msg.Body.Mid)
			continue
		}
		p.Photos = append(p.Photos, Photo{URL: photo.Payload.Url})
	}
	return p, nil
}

func (a *MaxAdapter) Publish(ctx context.Context, p Payload) (string, error) {
	if p.TextOnly() {
		if p.Caption == "" {
			return "", &PublishError{Platform: PlatformMax, Err: errNoContent}
		}
		m := maxbot.NewMessage().SetChat(a.channelID).SetText(p.Caption)
		if _, err := a.api.Messages.SendWithResult(ctx, m); err != nil {
			return "", &PublishError{Platform: PlatformMax, Err: err}
		}
		return a.channelLink, nil
	}

	var tokens []string
	for i, ph := range p.Photos {
		tok, err := a.uploadPhoto(ctx, ph, fmt.Sprintf("photo_%d.jpg", i+1))
		if err != nil {
			slog.Error("MAX photo upload failed, skipping", "index", i, "err", err)
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		if p.Caption != "" {
			// Ни одно фото не выжило — деградируем до текста.
			return a.Publish(ctx, Payload{Caption: p.Caption})
		}
		return "", &PublishError{Platform: PlatformMax, Err: errors.New("no attachments survived upload")}
	}

	atts := make([]maxAttachment, 0, len(tokens))
	for _, tok := range tokens {
		atts = append(atts, maxAttachment{Type: "image", Payload: map[string]any{"token": tok}})
	}
	if _, err := a.sendDirect(ctx, maxRecipientChat(a.channelID), p.Caption, atts, nil); err != nil {
		return "", &PublishError{Platform: PlatformMax, Err: err}
	}
	return a.channelLink, nil
}

// Notify шлёт модератору prompt с пересылкой оригинального поста и кнопками
// Approve/Ignore, несущими токен в JSON-payload.
func (a *MaxAdapter) Notify(ctx context.Context, moderatorID int64, promptText string, c *Candidate) (PromptHandle, error) {
	msg, ok := c.Source.(*maxschemes.Message)
	if !ok {
		return PromptHandle{}, errors.New("bad source ref")
	}

	kbd := maxAttachment{
		Type: "inline_keyboard",
		Payload: map[string]any{
			"buttons": [][]maxButton{{
				{Type: "callback", Text: btnApprove, Payload: maxCallbackPayload(VerdictApprove, c.Token), Intent: "positive"},
				{Type: "callback", Text: btnIgnore, Payload: maxCallbackPayload(VerdictIgnore, c.Token), Intent: "negative"},
			}},
		},
	}
	link := &maxMsgLink{Type: "forward", Mid: msg.Body.Mid}

	mid, err := a.sendDirect(ctx, maxRecipientUser(moderatorID), promptText, []maxAttachment{kbd}, link)
	if err != nil {
		return PromptHandle{}, err
	}
	return PromptHandle{ChatID: moderatorID, Mid: mid}, nil
}

func (a *MaxAdapter) EditPrompt(ctx context.Context, h PromptHandle, text, link string) error {
	if link == "" {
		m := maxbot.NewMessage().SetChat(h.ChatID).SetText(text)
		return a.api.Messages.EditMessage(ctx, h.Mid, m)
	}
	kbd := maxAttachment{
		Type: "inline_keyboard",
		Payload: map[string]any{
			"buttons": [][]maxButton{{
				{Type: "link", Text: msgOpenPost, Url: link},
			}},
		},
	}
	return a.editDirect(ctx, h.Mid, text, []maxAttachment{kbd})
}

func (b *Bridge) listenMax(ctx context.Context) {
	var updates <-chan maxschemes.UpdateInterface

	if b.cfg.MaxWebhookURL != "" {
		whPath := b.maxWebhookPath()
		whURL := strings.TrimRight(b.cfg.MaxWebhookURL, "/") + whPath
		ch := make(chan maxschemes.UpdateInterface, 100)
		http.HandleFunc(whPath, b.max.api.GetHandler(ch))
		if _, err := b.max.api.Subscriptions.Subscribe(ctx, whURL, nil, ""); err != nil {
			slog.Error("MAX webhook subscribe failed", "err", err)
			return
		}
		updates = ch
		slog.Info("MAX webhook mode")
	} else {
		updates = b.max.api.GetUpdates(ctx)
		slog.Info("MAX polling mode")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}

			slog.Debug("MAX update", "type", fmt.Sprintf("%T", upd))

			switch u := upd.(type) {
			case *maxschemes.MessageCallbackUpdate:
				b.handleMaxCallback(ctx, u)
			case *maxschemes.MessageCreatedUpdate:
				b.handleMaxMessage(ctx, u)
			}
		}
	}
}

// handleMaxMessage превращает пост наблюдаемого канала в кандидата. MAX отдаёт
// пост одним сообщением со всеми вложениями, агрегатор здесь не нужен.
func (b *Bridge) handleMaxMessage(ctx context.Context, u *maxschemes.MessageCreatedUpdate) {
	msg := u.Message

	if msg.Recipient.ChatId != b.cfg.MaxChannelID {
		text := strings.TrimSpace(msg.Body.Text)
		if msg.Recipient.ChatType == maxschemes.DIALOG && (text == "/start" || text == "/help") {
			m := maxbot.NewMessage().SetChat(msg.Recipient.ChatId).SetText(
				"Бот-модератор кросспостинга между MAX и Telegram.\n\n" +
					"Новые посты из связанных каналов приходят сюда на одобрение.")
			b.max.api.Messages.Send(ctx, m)
		}
		return
	}
	if msg.Sender.IsBot {
		// Свои же кросспосты обратно в очередь не предлагаем.
		return
	}

	slog.Info("MAX: new channel post", "mid", msg.Body.Mid)
	b.workflow.Propose(ctx, PlatformMax, &msg)
}

func (b *Bridge) handleMaxCallback(ctx context.Context, u *maxschemes.MessageCallbackUpdate) {
	userID := u.Callback.User.UserId
	if !isModerator(b.cfg.MaxModeratorIDs, userID) {
		slog.Warn("MAX callback from non-moderator", "user", userID)
		return
	}

	// Снимаем индикатор ожидания на кнопке, решение может идти долго.
	b.max.answerCallback(ctx, u.Callback.CallbackID)

	prompt := PromptHandle{ChatID: u.Message.Recipient.ChatId, Mid: u.Message.Body.Mid}
	b.router.DispatchMax(ctx, u.Callback.Payload, userID, prompt)
}
