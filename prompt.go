package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	msgGone = "❓ Этого поста больше не существует! Возможно, его уже принял" +
		" или проигнорировал другой модератор, либо пост слишком старый."
	msgIgnored  = "✅ Пост проигнорирован!"
	msgFetching = "⏳ Скачиваем и переносим файлы..."
	msgUnknownVerdict = "⁉️ Неизвестное действие. На всякий случай убираю пост" +
		" из очереди, чтобы он не завис навсегда."
	msgOpenPost = "👀 Открыть пост"

	btnApprove = "✅ Да"
	btnIgnore  = "❌ Нет"
)

// promptNewPost — текст приглашения модератору.
func promptNewPost(origin, dest string) string {
	return fmt.Sprintf("✅ Новый пост в канале %s!\nЗапостить его и в %s?", origin, dest)
}

func msgPublishing(dest string) string {
	return fmt.Sprintf("⏳ Постим в %s...", dest)
}

func msgPublished(dest string) string {
	return fmt.Sprintf("🎉 Готово, пост теперь и в %s!", dest)
}

func msgPublishFailed(dest string) string {
	return fmt.Sprintf("💥 Не получилось запостить в %s. Пост остался только"+
		" в исходном канале, подробности в логах.", dest)
}

// tgCallbackData кодирует решение для TG-кнопки: "<verdict>:<token>".
func tgCallbackData(v Verdict, token string) string {
	return fmt.Sprintf("%s:%s", v, token)
}

// maxCallbackPayload кодирует решение для MAX-кнопки: {"decision","uuid"}.
func maxCallbackPayload(v Verdict, token string) string {
	data, _ := json.Marshal(map[string]string{
		"decision": string(v),
		"uuid":     token,
	})
	return string(data)
}

// tgPostLink строит публичную ссылку на сообщение TG-канала. Для каналов без
// username используется внутренняя форма t.me/c/, понятная участникам канала.
func tgPostLink(username string, chatID int64, messageID int) string {
	if username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", username, messageID)
	}
	internal := strings.TrimPrefix(fmt.Sprintf("%d", chatID), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
}

// formatDecisionLog — ответ на /stats: последние решения из журнала.
func formatDecisionLog(records []DecisionRecord) string {
	if len(records) == 0 {
		return "Журнал решений пуст."
	}
	var sb strings.Builder
	sb.WriteString("Последние решения:\n")
	for _, rec := range records {
		mark := "✅"
		if rec.Verdict != string(VerdictApprove) {
			mark = "❌"
		}
		ts := time.Unix(rec.CreatedAt, 0).Format("02.01 15:04")
		fmt.Fprintf(&sb, "%s %s %s→%s модератор %d", mark, ts, rec.Origin,
			Platform(rec.Origin).Other(), rec.ModeratorID)
		if rec.PostLink != "" {
			fmt.Fprintf(&sb, " %s", rec.PostLink)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
