package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DecisionRouter переводит платформенное событие нажатия кнопки в Decision и
// отдаёт его workflow. Как именно платформа кодирует нажатие — деталь
// платформы, workflow её не видит.
type DecisionRouter struct {
	workflow *ModerationWorkflow
}

func NewDecisionRouter(w *ModerationWorkflow) *DecisionRouter {
	return &DecisionRouter{workflow: w}
}

// parseCallbackData разбирает TG-формат "<verdict>:<token>".
func parseCallbackData(data string) (Decision, error) {
	verdict, token, ok := strings.Cut(data, ":")
	if !ok || verdict == "" || token == "" {
		return Decision{}, fmt.Errorf("malformed callback data: %q", data)
	}
	return Decision{Token: token, Verdict: Verdict(verdict)}, nil
}

// parseCallbackPayload разбирает MAX-формат {"decision": "...", "uuid": "..."}.
func parseCallbackPayload(payload string) (Decision, error) {
	var body struct {
		Decision string `json:"decision"`
		UUID     string `json:"uuid"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return Decision{}, fmt.Errorf("malformed callback payload: %w", err)
	}
	if body.Decision == "" || body.UUID == "" {
		return Decision{}, fmt.Errorf("callback payload missing decision or uuid")
	}
	return Decision{Token: body.UUID, Verdict: Verdict(body.Decision)}, nil
}

// DispatchTelegram обрабатывает callback query из Telegram. Событие без
// токена или вердикта некуда репортить — кандидата ещё нет, только лог.
func (r *DecisionRouter) DispatchTelegram(ctx context.Context, data string, moderatorID int64, prompt PromptHandle) {
	d, err := parseCallbackData(data)
	if err != nil {
		slog.Error("TG decision dropped", "err", err)
		return
	}
	d.ModeratorID = moderatorID
	r.workflow.Resolve(ctx, PlatformTelegram, d, prompt)
}

// DispatchMax обрабатывает callback-событие из MAX.
func (r *DecisionRouter) DispatchMax(ctx context.Context, payload string, moderatorID int64, prompt PromptHandle) {
	d, err := parseCallbackPayload(payload)
	if err != nil {
		slog.Error("MAX decision dropped", "err", err)
		return
	}
	d.ModeratorID = moderatorID
	r.workflow.Resolve(ctx, PlatformMax, d, prompt)
}
