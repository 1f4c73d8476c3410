package main

import (
	"strings"
	"testing"
)

func TestPromptNewPost(t *testing.T) {
	got := promptNewPost("Telegram", "MAX")
	if !strings.Contains(got, "Telegram") || !strings.Contains(got, "MAX") {
		t.Errorf("promptNewPost() = %q, want both platform names", got)
	}
}

func TestTgCallbackData(t *testing.T) {
	if got := tgCallbackData(VerdictApprove, "abc123"); got != "approve:abc123" {
		t.Errorf("tgCallbackData() = %q, want %q", got, "approve:abc123")
	}
	if got := tgCallbackData(VerdictIgnore, "abc123"); got != "ignore:abc123" {
		t.Errorf("tgCallbackData() = %q, want %q", got, "ignore:abc123")
	}
}

func TestMaxCallbackPayloadRoundTrip(t *testing.T) {
	payload := maxCallbackPayload(VerdictApprove, "abc123")
	d, err := parseCallbackPayload(payload)
	if err != nil {
		t.Fatalf("parseCallbackPayload(%q) error: %v", payload, err)
	}
	if d.Token != "abc123" || d.Verdict != VerdictApprove {
		t.Errorf("round trip = %+v, want token abc123, verdict approve", d)
	}
}

func TestTgPostLink(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		chatID    int64
		messageID int
		want      string
	}{
		{"public channel", "mychannel", -1001234567890, 42, "https://t.me/mychannel/42"},
		{"private channel", "", -1001234567890, 42, "https://t.me/c/1234567890/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tgPostLink(tt.username, tt.chatID, tt.messageID)
			if got != tt.want {
				t.Errorf("tgPostLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDecisionLog(t *testing.T) {
	if got := formatDecisionLog(nil); !strings.Contains(got, "пуст") {
		t.Errorf("formatDecisionLog(nil) = %q, want empty-journal message", got)
	}

	records := []DecisionRecord{
		{Token: "t1", Origin: "tg", Verdict: "approve", ModeratorID: 100, PostLink: "https://max.ru/chan", CreatedAt: 1700000000},
		{Token: "t2", Origin: "max", Verdict: "ignore", ModeratorID: 300, CreatedAt: 1700000100},
	}
	got := formatDecisionLog(records)
	if !strings.Contains(got, "https://max.ru/chan") {
		t.Errorf("formatDecisionLog() = %q, want post link included", got)
	}
	if !strings.Contains(got, "✅") || !strings.Contains(got, "❌") {
		t.Errorf("formatDecisionLog() = %q, want both verdict marks", got)
	}
	if !strings.Contains(got, "tg→max") || !strings.Contains(got, "max→tg") {
		t.Errorf("formatDecisionLog() = %q, want direction for each record", got)
	}
}
