package main

import (
	"context"
	"log/slog"
	"time"
)

// ModerationWorkflow гоняет кандидата по его жизненному циклу: регистрация в
// PendingRegistry, рассылка промптов модераторам origin-платформы, исполнение
// решения против противоположной платформы.
type ModerationWorkflow struct {
	reg        *PendingRegistry
	adapters   map[Platform]PlatformAdapter
	moderators map[Platform][]int64
	journal    Repository // наблюдательный журнал решений, может быть nil
}

func NewModerationWorkflow(reg *PendingRegistry, journal Repository, moderators map[Platform][]int64, adapters ...PlatformAdapter) *ModerationWorkflow {
	byPlatform := make(map[Platform]PlatformAdapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}
	return &ModerationWorkflow{
		reg:        reg,
		adapters:   byPlatform,
		moderators: moderators,
		journal:    journal,
	}
}

// Propose регистрирует новый пост origin-платформы и рассылает его модераторам
// этой же платформы. Возвращает токен кандидата. Отказ уведомления одного
// модератора не мешает остальным.
func (w *ModerationWorkflow) Propose(ctx context.Context, origin Platform, source any) string {
	c := &Candidate{Origin: origin, Source: source}
	token, evicted := w.reg.Put(c)
	if evicted != nil {
		// Потеря молчаливая: модератор узнает о ней, только если нажмёт
		// кнопку на уже вытесненном кандидате.
		slog.Warn("pending candidate evicted",
			"platform", evicted.Origin, "token", evicted.Token, "pending", w.reg.Len())
	}

	via := w.adapters[origin]
	dest := w.adapters[origin.Other()]
	text := promptNewPost(via.Title(), dest.Title())
	for _, modID := range w.moderators[origin] {
		if _, err := via.Notify(ctx, modID, text, c); err != nil {
			slog.Error("notify failed", "platform", origin, "moderator", modID, "err", err)
		}
	}
	slog.Info("new candidate", "platform", origin, "token", token, "pending", w.reg.Len())
	return token
}

// Resolve исполняет решение модератора над prompt-сообщением, из которого оно
// пришло. Take в реестре — единственная точка синхронизации: второй модератор
// по тому же токену всегда получает "поста больше нет", в каком бы порядке
// события ни переплелись.
func (w *ModerationWorkflow) Resolve(ctx context.Context, via Platform, d Decision, prompt PromptHandle) {
	origin := w.adapters[via]

	c, ok := w.reg.Take(d.Token)
	if !ok {
		// Уже решён другим модератором, вытеснен или токен битый.
		slog.Info("decision on missing candidate", "token", d.Token, "moderator", d.ModeratorID)
		w.editPrompt(ctx, origin, prompt, msgGone, "")
		return
	}

	dest := w.adapters[c.Origin.Other()]

	switch d.Verdict {
	case VerdictIgnore:
		slog.Info("candidate ignored", "token", d.Token, "moderator", d.ModeratorID)
		w.editPrompt(ctx, origin, prompt, msgIgnored, "")
		w.record(c, d, "")

	case VerdictApprove:
		slog.Info("candidate approved", "token", d.Token, "moderator", d.ModeratorID)
		w.editPrompt(ctx, origin, prompt, msgFetching, "")

		payload, err := origin.FetchPayload(ctx, c.Source)
		if err != nil {
			slog.Error("fetch failed", "token", d.Token, "err", err)
			w.editPrompt(ctx, origin, prompt, msgPublishFailed(dest.Title()), "")
			w.record(c, d, "")
			return
		}

		w.editPrompt(ctx, origin, prompt, msgPublishing(dest.Title()), "")
		link, err := dest.Publish(ctx, payload)
		if err != nil {
			// Кандидат не перевыставляется: ретраев нет, модератор видит
			// отказ и при желании постит руками.
			slog.Error("publish failed", "token", d.Token, "err", err)
			w.editPrompt(ctx, origin, prompt, msgPublishFailed(dest.Title()), "")
			w.record(c, d, "")
			return
		}
		slog.Info("candidate published", "token", d.Token, "dest", dest.Platform(), "link", link)
		w.editPrompt(ctx, origin, prompt, msgPublished(dest.Title()), link)
		w.record(c, d, link)

	default:
		// Неопознанный вердикт: кандидат уже снят с реестра и туда не
		// возвращается — подвисших навсегда постов не оставляем.
		slog.Error("unknown verdict", "token", d.Token, "verdict", d.Verdict, "moderator", d.ModeratorID)
		w.editPrompt(ctx, origin, prompt, msgUnknownVerdict, "")
		w.record(c, d, "")
	}
}

func (w *ModerationWorkflow) editPrompt(ctx context.Context, a PlatformAdapter, h PromptHandle, text, link string) {
	if err := a.EditPrompt(ctx, h, text, link); err != nil {
		slog.Error("prompt edit failed", "platform", a.Platform(), "err", err)
	}
}

func (w *ModerationWorkflow) record(c *Candidate, d Decision, link string) {
	if w.journal == nil {
		return
	}
	w.journal.SaveDecision(DecisionRecord{
		Token:       c.Token,
		Origin:      string(c.Origin),
		Verdict:     string(d.Verdict),
		ModeratorID: d.ModeratorID,
		PostLink:    link,
		CreatedAt:   time.Now().Unix(),
	})
}
