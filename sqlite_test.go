package main

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLiteRepo(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteSaveAndRecent(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().Unix()
	repo.SaveDecision(DecisionRecord{Token: "t1", Origin: "tg", Verdict: "approve", ModeratorID: 100, PostLink: "https://max.ru/chan", CreatedAt: now - 10})
	repo.SaveDecision(DecisionRecord{Token: "t2", Origin: "max", Verdict: "ignore", ModeratorID: 300, CreatedAt: now})

	records, err := repo.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Свежие решения первыми.
	if records[0].Token != "t2" || records[1].Token != "t1" {
		t.Errorf("order = [%s %s], want [t2 t1]", records[0].Token, records[1].Token)
	}
	if records[1].PostLink != "https://max.ru/chan" {
		t.Errorf("post link = %q, want round-tripped", records[1].PostLink)
	}
	if records[0].ModeratorID != 300 {
		t.Errorf("moderator id = %d, want 300", records[0].ModeratorID)
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 5; i++ {
		repo.SaveDecision(DecisionRecord{Token: "t", Origin: "tg", Verdict: "ignore", CreatedAt: int64(i)})
	}

	records, err := repo.RecentDecisions(3)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestSQLiteCleanOldDecisions(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().Unix()
	repo.SaveDecision(DecisionRecord{Token: "old", Origin: "tg", Verdict: "approve", CreatedAt: now - 31*24*3600})
	repo.SaveDecision(DecisionRecord{Token: "fresh", Origin: "tg", Verdict: "approve", CreatedAt: now})

	repo.CleanOldDecisions()

	records, err := repo.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(records) != 1 || records[0].Token != "fresh" {
		t.Errorf("records after clean = %+v, want only fresh", records)
	}
}
