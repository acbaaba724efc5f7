// Package store keeps finished matches in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/harryalloyd/battleship/internal/game"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct{ Pool *pgxpool.Pool }

// OpenDB connects to Postgres and checks the connection.
func OpenDB(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}

func (db *DB) AutoMigrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS matches (
			id         UUID PRIMARY KEY,
			p1         TEXT NOT NULL,
			p2         TEXT NOT NULL,
			p1_name    TEXT NOT NULL,
			p2_name    TEXT NOT NULL,
			rounds     INT  NOT NULL DEFAULT 1,
			p1_shots   INT  NOT NULL DEFAULT 0,
			p1_hits    INT  NOT NULL DEFAULT 0,
			p2_shots   INT  NOT NULL DEFAULT 0,
			p2_hits    INT  NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at   TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_matches_ended_at ON matches(ended_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// MatchRecord is one finished room as stored in the matches table.
type MatchRecord struct {
	ID        string    `json:"id"`
	P1        string    `json:"p1"`
	P2        string    `json:"p2"`
	P1Name    string    `json:"p1_name"`
	P2Name    string    `json:"p2_name"`
	Rounds    int       `json:"rounds"`
	P1Shots   int       `json:"p1_shots"`
	P1Hits    int       `json:"p1_hits"`
	P2Shots   int       `json:"p2_shots"`
	P2Hits    int       `json:"p2_hits"`
	EndReason string    `json:"end_reason"`
	Started   time.Time `json:"started"`
	Ended     time.Time `json:"ended"`
}

const EndDisconnect = "disconnect"

// RecordFrom builds the history row for a room torn down at ended.
func RecordFrom(snap game.Snapshot, reason string, ended time.Time) MatchRecord {
	p1, p2 := snap.Players[0], snap.Players[1]
	return MatchRecord{
		ID:        string(snap.Room),
		P1:        string(p1),
		P2:        string(p2),
		P1Name:    snap.Usernames[0],
		P2Name:    snap.Usernames[1],
		Rounds:    snap.Rounds,
		P1Shots:   snap.Tally[p1].Shots,
		P1Hits:    snap.Tally[p1].Hits,
		P2Shots:   snap.Tally[p2].Shots,
		P2Hits:    snap.Tally[p2].Hits,
		EndReason: reason,
		Started:   snap.Started,
		Ended:     ended,
	}
}

func (db *DB) SaveMatch(ctx context.Context, m MatchRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO matches (id, p1, p2, p1_name, p2_name, rounds,
			p1_shots, p1_hits, p2_shots, p2_hits, end_reason, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			p1_name    = EXCLUDED.p1_name,
			p2_name    = EXCLUDED.p2_name,
			rounds     = EXCLUDED.rounds,
			p1_shots   = EXCLUDED.p1_shots,
			p1_hits    = EXCLUDED.p1_hits,
			p2_shots   = EXCLUDED.p2_shots,
			p2_hits    = EXCLUDED.p2_hits,
			end_reason = EXCLUDED.end_reason,
			ended_at   = EXCLUDED.ended_at
	`, m.ID, m.P1, m.P2, m.P1Name, m.P2Name, m.Rounds,
		m.P1Shots, m.P1Hits, m.P2Shots, m.P2Hits, m.EndReason, m.Started, m.Ended)
	if err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

// PersistAsync saves m in the background; failures are only logged.
func (db *DB) PersistAsync(m MatchRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.SaveMatch(ctx, m); err != nil {
			log.Println("persist match err:", err)
		}
	}()
}

func (db *DB) QueryRecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, p1, p2, p1_name, p2_name, rounds, p1_shots, p1_hits,
			p2_shots, p2_hits, end_reason, started_at, ended_at
		FROM matches
		ORDER BY ended_at DESC NULLS LAST, started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MatchRecord{}
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.ID, &m.P1, &m.P2, &m.P1Name, &m.P2Name, &m.Rounds,
			&m.P1Shots, &m.P1Hits, &m.P2Shots, &m.P2Hits, &m.EndReason, &m.Started, &m.Ended); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
