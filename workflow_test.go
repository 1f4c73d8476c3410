package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeAdapter записывает все вызовы; поведение Publish/Fetch настраивается.
type fakeAdapter struct {
	platform Platform

	fetchPayload Payload
	fetchErr     error
	publishLink  string
	publishErr   error

	notified  []int64
	published []Payload
	edits     []string
	editLinks []string
}

func (f *fakeAdapter) Platform() Platform { return f.platform }

func (f *fakeAdapter) Title() string {
	if f.platform == PlatformTelegram {
		return "Telegram"
	}
	return "MAX"
}

func (f *fakeAdapter) FetchPayload(ctx context.Context, source any) (Payload, error) {
	return f.fetchPayload, f.fetchErr
}

func (f *fakeAdapter) Publish(ctx context.Context, p Payload) (string, error) {
	f.published = append(f.published, p)
	return f.publishLink, f.publishErr
}

func (f *fakeAdapter) Notify(ctx context.Context, moderatorID int64, promptText string, c *Candidate) (PromptHandle, error) {
	f.notified = append(f.notified, moderatorID)
	return PromptHandle{ChatID: moderatorID, MessageID: 1}, nil
}

func (f *fakeAdapter) EditPrompt(ctx context.Context, h PromptHandle, text, link string) error {
	f.edits = append(f.edits, text)
	f.editLinks = append(f.editLinks, link)
	return nil
}

// fakeJournal собирает записи журнала в память.
type fakeJournal struct {
	records []DecisionRecord
}

func (j *fakeJournal) SaveDecision(rec DecisionRecord) { j.records = append(j.records, rec) }
func (j *fakeJournal) RecentDecisions(int) ([]DecisionRecord, error) { return j.records, nil }
func (j *fakeJournal) CleanOldDecisions() {}
func (j *fakeJournal) Close() error { return nil }

func newTestWorkflow(capacity int) (*ModerationWorkflow, *fakeAdapter, *fakeAdapter, *fakeJournal) {
	tg := &fakeAdapter{platform: PlatformTelegram, publishLink: "https://t.me/chan/1"}
	max := &fakeAdapter{platform: PlatformMax, publishLink: "https://max.ru/chan"}
	journal := &fakeJournal{}
	moderators := map[Platform][]int64{
		PlatformTelegram: {100, 200},
		PlatformMax:      {300},
	}
	w := NewModerationWorkflow(NewPendingRegistry(capacity), journal, moderators, tg, max)
	return w, tg, max, journal
}

func TestWorkflowProposeNotifiesOriginModerators(t *testing.T) {
	w, tg, max, _ := newTestWorkflow(10)

	token := w.Propose(context.Background(), PlatformTelegram, "src")
	if token == "" {
		t.Fatal("Propose returned empty token")
	}
	if w.reg.Len() != 1 {
		t.Errorf("registry size = %d, want 1", w.reg.Len())
	}
	if len(tg.notified) != 2 || tg.notified[0] != 100 || tg.notified[1] != 200 {
		t.Errorf("TG moderators notified = %v, want [100 200]", tg.notified)
	}
	if len(max.notified) != 0 {
		t.Errorf("MAX moderators notified = %v, want none", max.notified)
	}
}

func TestWorkflowApproveEndToEnd(t *testing.T) {
	w, tg, max, journal := newTestWorkflow(10)
	tg.fetchPayload = Payload{Caption: "привет из TG"}

	ctx := context.Background()
	token := w.Propose(ctx, PlatformTelegram, "src")

	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: VerdictApprove, ModeratorID: 100}, PromptHandle{ChatID: 100, MessageID: 1})

	if len(max.published) != 1 {
		t.Fatalf("destination Publish called %d times, want 1", len(max.published))
	}
	if max.published[0].Caption != "привет из TG" {
		t.Errorf("published caption = %q, want original", max.published[0].Caption)
	}
	if !max.published[0].TextOnly() {
		t.Error("published payload is not text-only")
	}
	if len(tg.published) != 0 {
		t.Errorf("origin Publish called %d times, want 0", len(tg.published))
	}
	if w.reg.Len() != 0 {
		t.Errorf("registry size after resolve = %d, want 0", w.reg.Len())
	}

	// Последняя правка промпта — успех со ссылкой на новый пост.
	if len(tg.edits) == 0 {
		t.Fatal("prompt never edited")
	}
	last := len(tg.edits) - 1
	if !strings.Contains(tg.edits[last], "MAX") {
		t.Errorf("final prompt edit = %q, want success mentioning MAX", tg.edits[last])
	}
	if tg.editLinks[last] != "https://max.ru/chan" {
		t.Errorf("final prompt link = %q, want publish link", tg.editLinks[last])
	}

	if len(journal.records) != 1 || journal.records[0].Verdict != "approve" {
		t.Errorf("journal records = %+v, want one approve", journal.records)
	}
}

func TestWorkflowIgnore(t *testing.T) {
	w, tg, max, journal := newTestWorkflow(10)

	ctx := context.Background()
	token := w.Propose(ctx, PlatformTelegram, "src")
	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: VerdictIgnore, ModeratorID: 200}, PromptHandle{})

	if len(max.published) != 0 {
		t.Errorf("Publish called on ignore: %d times", len(max.published))
	}
	if w.reg.Len() != 0 {
		t.Errorf("registry size = %d, want 0", w.reg.Len())
	}
	if len(tg.edits) != 1 || tg.edits[0] != msgIgnored {
		t.Errorf("prompt edits = %v, want single ignore confirmation", tg.edits)
	}
	if len(journal.records) != 1 || journal.records[0].Verdict != "ignore" {
		t.Errorf("journal records = %+v, want one ignore", journal.records)
	}
}

func TestWorkflowUnknownVerdict(t *testing.T) {
	w, tg, max, _ := newTestWorkflow(10)

	ctx := context.Background()
	token := w.Propose(ctx, PlatformTelegram, "src")
	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: "maybe", ModeratorID: 100}, PromptHandle{})

	if len(max.published) != 0 {
		t.Errorf("Publish called on unknown verdict: %d times", len(max.published))
	}
	// Кандидат снят с реестра, чтобы не зависнуть навсегда.
	if w.reg.Len() != 0 {
		t.Errorf("registry size = %d, want 0", w.reg.Len())
	}
	if len(tg.edits) != 1 || tg.edits[0] != msgUnknownVerdict {
		t.Errorf("prompt edits = %v, want unknown-verdict message", tg.edits)
	}
}

func TestWorkflowDoubleDecision(t *testing.T) {
	w, tg, _, journal := newTestWorkflow(10)
	tg.fetchPayload = Payload{Caption: "text"}

	ctx := context.Background()
	token := w.Propose(ctx, PlatformTelegram, "src")

	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: VerdictApprove, ModeratorID: 100}, PromptHandle{})
	// Второй модератор опоздал: его промпт правится на "поста больше нет".
	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: VerdictApprove, ModeratorID: 200}, PromptHandle{})

	last := tg.edits[len(tg.edits)-1]
	if last != msgGone {
		t.Errorf("second decision prompt edit = %q, want %q", last, msgGone)
	}
	if len(journal.records) != 1 {
		t.Errorf("journal records = %d, want 1 (second decision not recorded)", len(journal.records))
	}
}

func TestWorkflowEvictedCandidateReportsGone(t *testing.T) {
	w, tg, _, _ := newTestWorkflow(1)

	ctx := context.Background()
	first := w.Propose(ctx, PlatformTelegram, "src1")
	w.Propose(ctx, PlatformTelegram, "src2") // вытесняет first

	w.Resolve(ctx, PlatformTelegram, Decision{Token: first, Verdict: VerdictApprove, ModeratorID: 100}, PromptHandle{})

	last := tg.edits[len(tg.edits)-1]
	if last != msgGone {
		t.Errorf("evicted candidate prompt edit = %q, want %q", last, msgGone)
	}
}

func TestWorkflowPublishFailure(t *testing.T) {
	w, tg, max, journal := newTestWorkflow(10)
	tg.fetchPayload = Payload{Caption: "text"}
	max.publishErr = &PublishError{Platform: PlatformMax, Err: errors.New("boom")}

	ctx := context.Background()
	token := w.Propose(ctx, PlatformTelegram, "src")
	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: VerdictApprove, ModeratorID: 100}, PromptHandle{})

	// Кандидат не перевыставляется, модератор видит отказ.
	if w.reg.Len() != 0 {
		t.Errorf("registry size = %d, want 0 (no requeue)", w.reg.Len())
	}
	last := tg.edits[len(tg.edits)-1]
	if !strings.Contains(last, "Не получилось") {
		t.Errorf("prompt edit = %q, want failure message", last)
	}
	if len(journal.records) != 1 || journal.records[0].PostLink != "" {
		t.Errorf("journal records = %+v, want one record without link", journal.records)
	}
}

func TestWorkflowNilJournal(t *testing.T) {
	tg := &fakeAdapter{platform: PlatformTelegram}
	max := &fakeAdapter{platform: PlatformMax}
	w := NewModerationWorkflow(NewPendingRegistry(10), nil, map[Platform][]int64{}, tg, max)

	ctx := context.Background()
	token := w.Propose(ctx, PlatformTelegram, "src")
	// Не должно паниковать без журнала.
	w.Resolve(ctx, PlatformTelegram, Decision{Token: token, Verdict: VerdictIgnore}, PromptHandle{})
}
