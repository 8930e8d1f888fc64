package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clonesclash/clash-server-go/internal/config"
	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		for _, format := range []string{"json", "console"} {
			t.Run(tt.level+"/"+format, func(t *testing.T) {
				logger, err := initLogger(config.LoggingConfig{Level: tt.level, Format: format})
				require.NoError(t, err)
				assert.True(t, logger.Core().Enabled(tt.want))
				if tt.want > zapcore.DebugLevel {
					assert.False(t, logger.Core().Enabled(tt.want-1))
				}
			})
		}
	}
}

func TestLoadLibrary(t *testing.T) {
	lib, err := loadLibrary(afero.NewMemMapFs(), config.DecksConfig{})
	require.NoError(t, err)
	assert.Contains(t, lib.DeckNames(), cards.DefaultDeckName)

	fs := afero.NewMemMapFs()
	_, err = loadLibrary(fs, config.DecksConfig{Path: "missing.yaml"})
	assert.Error(t, err)
}

func TestLoadDecks(t *testing.T) {
	lib := cards.DefaultLibrary()

	left, right, err := loadDecks(lib, config.DecksConfig{Left: "default", Right: "air"})
	require.NoError(t, err)
	assert.NotEmpty(t, left)
	assert.NotEmpty(t, right)

	_, _, err = loadDecks(lib, config.DecksConfig{Left: "nope", Right: "air"})
	assert.ErrorContains(t, err, "left deck")
	_, _, err = loadDecks(lib, config.DecksConfig{Left: "default", Right: "nope"})
	assert.ErrorContains(t, err, "right deck")
}

func newTestSimulator(t *testing.T) *simulator {
	t.Helper()
	settings := game.Settings{MatchStartSeconds: 5, AIPlayInterval: time.Second}
	sim := &simulator{
		matches: game.NewManager(zaptest.NewLogger(t), settings),
		tick:    16 * time.Millisecond,
		seed:    11,
		logger:  zaptest.NewLogger(t),
	}
	t.Cleanup(sim.matches.Close)
	return sim
}

func TestSimulatorSeries(t *testing.T) {
	sim := newTestSimulator(t)
	deck, err := cards.DefaultLibrary().Deck(cards.DefaultDeckName)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, sim.series(context.Background(), &out, deck, deck, 3))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "match   1"))
	assert.True(t, strings.HasPrefix(lines[4], "left "))
	assert.Empty(t, sim.matches.Matches())
	assert.Equal(t, uint64(3), sim.played)
}

func TestSimulatorIsReproducible(t *testing.T) {
	deck, err := cards.DefaultLibrary().Deck(cards.DefaultDeckName)
	require.NoError(t, err)

	run := func() string {
		var out bytes.Buffer
		require.NoError(t, newTestSimulator(t).series(context.Background(), &out, deck, deck, 2))
		return out.String()
	}
	assert.Equal(t, run(), run())
}

func TestSimulatorLeague(t *testing.T) {
	sim := newTestSimulator(t)

	var out bytes.Buffer
	require.NoError(t, sim.league(context.Background(), &out, cards.DefaultLibrary()))

	text := out.String()
	assert.Contains(t, text, "round  1")
	assert.Contains(t, text, "PTS")
	for _, name := range cards.DefaultLibrary().DeckNames() {
		assert.Contains(t, text, name)
	}
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	sim := newTestSimulator(t)
	deck, err := cards.DefaultLibrary().Deck(cards.DefaultDeckName)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.play(ctx, deck, deck)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sim.matches.Matches())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "clashd dev\n", out.String())
}
