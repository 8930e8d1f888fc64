package game

import (
	"context"
	"time"
)

// MatchResult is the archived summary of a finished match.
type MatchResult struct {
	MatchID          string
	GameID           string
	Winner           string
	WinnerName       string
	Tie              bool
	LeftScore        int
	RightScore       int
	LeftCardsPlayed  int
	RightCardsPlayed int
	LeftDamage       int
	RightDamage      int
	EntitiesLost     int
	Message          string
	Duration         time.Duration
	EndedAt          time.Time
}

// ResultStore archives match results.
type ResultStore interface {
	SaveResult(ctx context.Context, result MatchResult) error
	RecentResults(ctx context.Context, limit int) ([]MatchResult, error)
	Close() error
}
