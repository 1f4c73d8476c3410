package main

import (
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type postgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := runMigrations(db, "postgres"); err != nil {
		return nil, err
	}

	return &postgresRepo{db: db}, nil
}

func (r *postgresRepo) SaveDecision(rec DecisionRecord) {
	_, err := r.db.Exec(
		"INSERT INTO decisions (token, origin, verdict, moderator_id, post_link, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		rec.Token, rec.Origin, rec.Verdict, rec.ModeratorID, rec.PostLink, rec.CreatedAt)
	if err != nil {
		slog.Error("decision log insert failed", "err", err)
	}
}

func (r *postgresRepo) RecentDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := r.db.Query(
		"SELECT token, origin, verdict, moderator_id, post_link, created_at FROM decisions ORDER BY created_at DESC, id DESC LIMIT $1",
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

func (r *postgresRepo) CleanOldDecisions() {
	r.db.Exec("DELETE FROM decisions WHERE created_at < $1", time.Now().Unix()-30*24*3600)
}

func (r *postgresRepo) Close() error {
	return r.db.Close()
}
