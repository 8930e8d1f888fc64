package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_results (
    game_id            TEXT PRIMARY KEY,
    match_id           TEXT NOT NULL,
    winner             TEXT NOT NULL,
    winner_name        TEXT NOT NULL,
    tie                INTEGER NOT NULL,
    left_score         INTEGER NOT NULL,
    right_score        INTEGER NOT NULL,
    left_cards_played  INTEGER NOT NULL,
    right_cards_played INTEGER NOT NULL,
    left_damage        INTEGER NOT NULL,
    right_damage       INTEGER NOT NULL,
    entities_lost      INTEGER NOT NULL,
    message            TEXT NOT NULL,
    duration_ms        INTEGER NOT NULL,
    ended_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_ended_at ON game_results (ended_at DESC);
CREATE INDEX IF NOT EXISTS game_results_match_id ON game_results (match_id);
`

// SQLiteResultStore keeps results in a local SQLite database.
type SQLiteResultStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens the database at path and creates the schema. Use
// ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteResultStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("sqlite result store opened", zap.String("path", path))
	return &SQLiteResultStore{db: db, logger: logger}, nil
}

// SaveResult inserts or replaces the result of one game.
func (s *SQLiteResultStore) SaveResult(ctx context.Context, r game.MatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO game_results (
		   game_id, match_id, winner, winner_name, tie, left_score, right_score,
		   left_cards_played, right_cards_played, left_damage, right_damage,
		   entities_lost, message, duration_ms, ended_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, r.MatchID, r.Winner, r.WinnerName, boolToInt(r.Tie), r.LeftScore, r.RightScore,
		r.LeftCardsPlayed, r.RightCardsPlayed, r.LeftDamage, r.RightDamage,
		r.EntitiesLost, r.Message, r.Duration.Milliseconds(), r.EndedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save match result: %w", err)
	}
	s.logger.Debug("match result saved",
		zap.String("match_id", r.MatchID),
		zap.String("game_id", r.GameID))
	return nil
}

// RecentResults returns up to limit results, newest first.
func (s *SQLiteResultStore) RecentResults(ctx context.Context, limit int) ([]game.MatchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, match_id, winner, winner_name, tie, left_score, right_score,
		        left_cards_played, right_cards_played, left_damage, right_damage,
		        entities_lost, message, duration_ms, ended_at
		   FROM game_results
		  ORDER BY ended_at DESC, game_id
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query match results: %w", err)
	}
	defer rows.Close()

	var results []game.MatchResult
	for rows.Next() {
		var (
			r          game.MatchResult
			tie        int
			durationMs int64
			endedAt    int64
		)
		if err := rows.Scan(
			&r.GameID, &r.MatchID, &r.Winner, &r.WinnerName, &tie, &r.LeftScore, &r.RightScore,
			&r.LeftCardsPlayed, &r.RightCardsPlayed, &r.LeftDamage, &r.RightDamage,
			&r.EntitiesLost, &r.Message, &durationMs, &endedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		r.Tie = tie != 0
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.EndedAt = time.UnixMilli(endedAt).UTC()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match results: %w", err)
	}
	return results, nil
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
