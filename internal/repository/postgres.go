package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS game_results (
    game_id            TEXT PRIMARY KEY,
    match_id           TEXT NOT NULL,
    winner             TEXT NOT NULL,
    winner_name        TEXT NOT NULL,
    tie                BOOLEAN NOT NULL,
    left_score         INTEGER NOT NULL,
    right_score        INTEGER NOT NULL,
    left_cards_played  INTEGER NOT NULL,
    right_cards_played INTEGER NOT NULL,
    left_damage        INTEGER NOT NULL,
    right_damage       INTEGER NOT NULL,
    entities_lost      INTEGER NOT NULL,
    message            TEXT NOT NULL,
    duration_ms        BIGINT NOT NULL,
    ended_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_ended_at ON game_results (ended_at DESC);
CREATE INDEX IF NOT EXISTS game_results_match_id ON game_results (match_id);
`

// PostgresResultStore keeps results in PostgreSQL.
type PostgresResultStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects a pool to dsn and creates the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresResultStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return &PostgresResultStore{pool: pool, logger: logger}, nil
}

// SaveResult upserts a result.
func (s *PostgresResultStore) SaveResult(ctx context.Context, r game.MatchResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_results (
		   game_id, match_id, winner, winner_name, tie, left_score, right_score,
		   left_cards_played, right_cards_played, left_damage, right_damage,
		   entities_lost, message, duration_ms, ended_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (game_id) DO UPDATE SET
		   match_id = EXCLUDED.match_id,
		   winner = EXCLUDED.winner,
		   winner_name = EXCLUDED.winner_name,
		   tie = EXCLUDED.tie,
		   left_score = EXCLUDED.left_score,
		   right_score = EXCLUDED.right_score,
		   left_cards_played = EXCLUDED.left_cards_played,
		   right_cards_played = EXCLUDED.right_cards_played,
		   left_damage = EXCLUDED.left_damage,
		   right_damage = EXCLUDED.right_damage,
		   entities_lost = EXCLUDED.entities_lost,
		   message = EXCLUDED.message,
		   duration_ms = EXCLUDED.duration_ms,
		   ended_at = EXCLUDED.ended_at`,
		r.GameID, r.MatchID, r.Winner, r.WinnerName, r.Tie, r.LeftScore, r.RightScore,
		r.LeftCardsPlayed, r.RightCardsPlayed, r.LeftDamage, r.RightDamage,
		r.EntitiesLost, r.Message, r.Duration.Milliseconds(), r.EndedAt.UTC(),
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
func (s *PostgresResultStore) RecentResults(ctx context.Context, limit int) ([]game.MatchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT game_id, match_id, winner, winner_name, tie, left_score, right_score,
		        left_cards_played, right_cards_played, left_damage, right_damage,
		        entities_lost, message, duration_ms, ended_at
		   FROM game_results
		  ORDER BY ended_at DESC, game_id
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query match results: %w", err)
	}
	defer rows.Close()

	var results []game.MatchResult
	for rows.Next() {
		var (
			r          game.MatchResult
			durationMs int64
		)
		if err := rows.Scan(
			&r.GameID, &r.MatchID, &r.Winner, &r.WinnerName, &r.Tie, &r.LeftScore, &r.RightScore,
			&r.LeftCardsPlayed, &r.RightCardsPlayed, &r.LeftDamage, &r.RightDamage,
			&r.EntitiesLost, &r.Message, &durationMs, &r.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match results: %w", err)
	}
	return results, nil
}

// Close releases the pool.
func (s *PostgresResultStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
