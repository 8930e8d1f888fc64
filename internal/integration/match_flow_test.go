package integration

import (
	"context"
	"testing"
	"time"

	"github.com/clonesclash/clash-server-go/internal/config"
	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/clonesclash/clash-server-go/internal/league"
	"github.com/clonesclash/clash-server-go/internal/repository"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type matchEnv struct {
	cfg      *config.Config
	store    game.ResultStore
	fs       afero.Fs
	recorder *game.ReplayRecorder
	matches  *game.Manager
}

func newMatchEnv(t *testing.T, yaml string) *matchEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "clash.yaml", []byte(yaml), 0o644))
	cfg, err := config.LoadFs(fs, "clash.yaml")
	require.NoError(t, err)

	store, err := repository.Open(context.Background(), cfg.Storage.Driver, cfg.Storage.DSN, logger)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { store.Close() })

	recorder := game.NewReplayRecorder(logger, fs, cfg.Replay.Dir)
	matches := game.NewManager(logger, cfg.MatchSettings(),
		game.WithResultStore(store),
		game.WithRecorder(recorder),
		game.WithMatchOptions(game.WithAI(game.PlayerLeft, game.PlayerRight)),
	)
	t.Cleanup(matches.Close)

	return &matchEnv{cfg: cfg, store: store, fs: fs, recorder: recorder, matches: matches}
}

const shortMatchConfig = `
match:
  start_seconds: 6
  seed: 21
  ai_play_interval: 1s
  snapshot_interval: 500ms
storage:
  driver: sqlite
  dsn: ":memory:"
replay:
  enabled: true
  dir: replays
`

func playToEnd(t *testing.T, env *matchEnv, m *game.Match) {
	t.Helper()
	tick := env.cfg.Match.TickInterval
	limit := int(time.Duration(env.cfg.Match.StartSeconds*float64(time.Second))/tick) + 10
	for i := 0; i < limit && m.IsPlaying(); i++ {
		env.matches.Step(tick)
	}
	require.Equal(t, game.MatchStateEnded, m.State())
	env.matches.WaitForSaves()
}

func TestMatchFlowArchivesResultAndReplay(t *testing.T) {
	env := newMatchEnv(t, shortMatchConfig)
	lib := cards.DefaultLibrary()
	deck, err := lib.Deck(env.cfg.Decks.Left)
	require.NoError(t, err)

	m, err := env.matches.StartMatch(deck, deck)
	require.NoError(t, err)
	playToEnd(t, env, m)

	results, err := env.store.RecentResults(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, m.ID, results[0].MatchID)
	assert.Equal(t, m.GameID(), results[0].GameID)
	assert.Equal(t, m.Result().Message, results[0].Message)
	assert.Positive(t, results[0].LeftCardsPlayed+results[0].RightCardsPlayed)

	replay, err := env.recorder.LoadReplay(m.GameID())
	require.NoError(t, err)
	require.Positive(t, replay.Size())
	last := replay.GetStateAt(replay.Size() - 1)
	assert.Equal(t, game.MatchStateEnded, last.State)

	// The archived final snapshot hashes the same as the live match.
	want, err := m.Snapshot().ComputeChecksum()
	require.NoError(t, err)
	ok, err := last.VerifyChecksum(want)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeagueOverArchivedMatches(t *testing.T) {
	env := newMatchEnv(t, shortMatchConfig)
	lib := cards.DefaultLibrary()

	l := league.New("integration", zaptest.NewLogger(t))
	for _, name := range lib.DeckNames() {
		require.NoError(t, l.AddEntrant(name))
	}
	require.NoError(t, l.Start())

	played := 0
	for {
		round, p, ok := l.Next()
		if !ok {
			break
		}
		left, err := lib.Deck(p.Left)
		require.NoError(t, err)
		right, err := lib.Deck(p.Right)
		require.NoError(t, err)

		m, err := env.matches.StartMatch(left, right)
		require.NoError(t, err)
		playToEnd(t, env, m)

		result := m.Result()
		winner := ""
		if !result.Tie {
			winner = p.Left
			if result.Winner == game.PlayerRight {
				winner = p.Right
			}
		}
		require.NoError(t, l.RecordResult(round, p.Left, p.Right, winner, m.ID, result.LeftScore, result.RightScore))
		require.NoError(t, env.matches.EndMatch(m.ID))
		played++
	}

	assert.Equal(t, league.StateFinished, l.State())
	results, err := env.store.RecentResults(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, results, played)

	total := 0
	for _, e := range l.Standings() {
		total += e.Points
	}
	assert.GreaterOrEqual(t, total, 2*played)
	assert.LessOrEqual(t, total, 3*played)
}
