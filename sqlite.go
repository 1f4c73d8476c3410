package main

import (
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dbPath string) (Repository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, "sqlite3"); err != nil {
		return nil, err
	}

	return &sqliteRepo{db: db}, nil
}

func (r *sqliteRepo) SaveDecision(rec DecisionRecord) {
	_, err := r.db.Exec(
		"INSERT INTO decisions (token, origin, verdict, moderator_id, post_link, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.Token, rec.Origin, rec.Verdict, rec.ModeratorID, rec.PostLink, rec.CreatedAt)
	if err != nil {
		slog.Error("decision log insert failed", "err", err)
	}
}

func (r *sqliteRepo) RecentDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := r.db.Query(
		"SELECT token, origin, verdict, moderator_id, post_link, created_at FROM decisions ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(&rec.Token, &rec.Origin, &rec.Verdict, &rec.ModeratorID, &rec.PostLink, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *sqliteRepo) CleanOldDecisions() {
	r.db.Exec("DELETE FROM decisions WHERE created_at < ?", time.Now().Unix()-30*24*3600)
}

func (r *sqliteRepo) Close() error {
	return r.db.Close()
}
