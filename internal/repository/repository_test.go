package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleResult(id string, ended time.Time) game.MatchResult {
	return game.MatchResult{
		MatchID:          "match-a",
		GameID:           id,
		Winner:           game.PlayerLeft,
		WinnerName:       "Computer",
		LeftScore:        3,
		RightScore:       1,
		LeftCardsPlayed:  12,
		RightCardsPlayed: 9,
		LeftDamage:       4100,
		RightDamage:      2200,
		EntitiesLost:     17,
		Message:          "Computer won!",
		Duration:         95*time.Second + 250*time.Millisecond,
		EndedAt:          ended,
	}
}

func exerciseStore(t *testing.T, store game.ResultStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveResult(ctx, sampleResult(fmt.Sprintf("m-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}
	tie := sampleResult("m-tie", base.Add(time.Hour))
	tie.Winner, tie.WinnerName, tie.Tie, tie.Message = "", "", true, "Tie game!"
	require.NoError(t, store.SaveResult(ctx, tie))

	results, err := store.RecentResults(ctx, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "m-tie", results[0].GameID)
	assert.Equal(t, "match-a", results[0].MatchID)
	assert.True(t, results[0].Tie)
	assert.Equal(t, "m-4", results[1].GameID)
	assert.Equal(t, "m-3", results[2].GameID)

	got := results[1]
	want := sampleResult("m-4", base.Add(4*time.Minute))
	assert.Equal(t, want.Winner, got.Winner)
	assert.Equal(t, want.LeftDamage, got.LeftDamage)
	assert.Equal(t, want.Duration, got.Duration)
	assert.True(t, want.EndedAt.Equal(got.EndedAt))

	// Saving the same game again replaces the row.
	updated := sampleResult("m-4", base.Add(4*time.Minute))
	updated.Message = "replayed"
	require.NoError(t, store.SaveResult(ctx, updated))
	all, err := store.RecentResults(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Equal(t, "replayed", all[1].Message)

	// Every game of one match keeps its own row.
	for i := 1; i <= 2; i++ {
		r := sampleResult(fmt.Sprintf("match-b-%d", i), base.Add(2*time.Hour+time.Duration(i)*time.Minute))
		r.MatchID = "match-b"
		require.NoError(t, store.SaveResult(ctx, r))
	}
	latest, err := store.RecentResults(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "match-b-2", latest[0].GameID)
	assert.Equal(t, "match-b-1", latest[1].GameID)
	assert.Equal(t, "match-b", latest[0].MatchID)
	assert.Equal(t, "match-b", latest[1].MatchID)

	none, err := store.RecentResults(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteResultStore(t *testing.T) {
	store, err := OpenSQLite(context.Background(), ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteResultStoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	store, err := OpenSQLite(ctx, path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, store.SaveResult(ctx, sampleResult("persisted", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reopened.Close()
	results, err := reopened.RecentResults(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted", results[0].GameID)
}

func TestPostgresResultStore(t *testing.T) {
	dsn := os.Getenv("CLASH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLASH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.pool.Exec(ctx, "TRUNCATE game_results")
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, DriverNone, "", nil)
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = Open(ctx, DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	_, err = Open(ctx, DriverSQLite, "", nil)
	assert.Error(t, err)

	_, err = Open(ctx, "mongo", "x", nil)
	assert.Error(t, err)
}
