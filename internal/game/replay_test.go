package game

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func snapshotAt(matchID string, second int) *MatchSnapshot {
	return &MatchSnapshot{
		MatchID:          matchID,
		State:            MatchStatePlaying,
		Elapsed:          time.Duration(second) * time.Second,
		RemainingSeconds: float64(180 - second),
		Players: []PlayerSnapshot{
			{ID: PlayerLeft, Name: "Computer", HQ: 2000, Score: 3, Hand: []string{"Knight", "Archer", "Tank", "Drone"}},
			{ID: PlayerRight, Name: "Player", HQ: 2000, Score: 3, Hand: []string{"Giant", "Cannon", "Knight", "Drone"}},
		},
	}
}

func TestNewReplay(t *testing.T) {
	replay := NewReplay("match-123")
	assert.Equal(t, "match-123", replay.MatchID)
	assert.Equal(t, 0, replay.CurrentIndex)
	assert.Equal(t, 0, replay.Size())
}

func TestReplayNavigation(t *testing.T) {
	replay := NewReplay("match-123")
	for i := 0; i < 5; i++ {
		replay.RecordState(snapshotAt("match-123", i))
	}
	assert.Equal(t, 5, replay.Size())

	replay.Start()
	state := replay.Next()
	require.NotNil(t, state)
	assert.Equal(t, time.Duration(0), state.Elapsed)

	state = replay.Next()
	require.NotNil(t, state)
	assert.Equal(t, time.Second, state.Elapsed)
	assert.Equal(t, 2, replay.CurrentIndex)

	// Previous steps back onto the snapshot Next just returned.
	state = replay.Previous()
	require.NotNil(t, state)
	assert.Equal(t, time.Second, state.Elapsed)
	assert.Equal(t, 1, replay.CurrentIndex)

	state = replay.Previous()
	require.NotNil(t, state)
	assert.Equal(t, time.Duration(0), state.Elapsed)

	replay.Start()
	assert.Nil(t, replay.Previous())

	for i := 0; i < 10; i++ {
		replay.Next()
	}
	assert.Nil(t, replay.Next())
}

func TestReplaySkip(t *testing.T) {
	replay := NewReplay("match-123")
	for i := 0; i < 10; i++ {
		replay.RecordState(snapshotAt("match-123", i))
	}
	replay.Start()

	tests := []struct {
		skip    int
		index   int
		elapsed time.Duration
	}{
		{3, 3, 3 * time.Second},
		{5, 8, 8 * time.Second},
		{100, 9, 9 * time.Second},
		{-5, 4, 4 * time.Second},
		{-100, 0, 0},
	}
	for _, tt := range tests {
		state := replay.Skip(tt.skip)
		require.NotNil(t, state)
		assert.Equal(t, tt.index, replay.CurrentIndex)
		assert.Equal(t, tt.elapsed, state.Elapsed)
	}
}

func TestReplayGetStateAt(t *testing.T) {
	replay := NewReplay("match-123")
	for i := 0; i < 5; i++ {
		replay.RecordState(snapshotAt("match-123", i))
	}

	assert.Equal(t, 4*time.Second, replay.GetStateAt(4).Elapsed)
	assert.Nil(t, replay.GetStateAt(-1))
	assert.Nil(t, replay.GetStateAt(5))
}

func TestReplaySaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	replay := NewReplay("match-123")
	for i := 0; i < 5; i++ {
		replay.RecordState(snapshotAt("match-123", i))
	}

	dir := filepath.Join("replays", "nested")
	require.NoError(t, replay.SaveToFile(fs, dir))

	exists, err := afero.Exists(fs, filepath.Join(dir, "match-123.replay"))
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := LoadReplayFromFile(fs, dir, "match-123")
	require.NoError(t, err)
	assert.Equal(t, replay.MatchID, loaded.MatchID)
	require.Equal(t, replay.Size(), loaded.Size())

	for i := 0; i < replay.Size(); i++ {
		original, got := replay.GetStateAt(i), loaded.GetStateAt(i)
		assert.Equal(t, original.Elapsed, got.Elapsed)
		assert.Equal(t, original.State, got.State)
		assert.Equal(t, original.Players, got.Players)
	}
}

func TestReplayLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadReplayFromFile(fs, "replays", "nonexistent")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "replays/garbage.replay", []byte("not gzip"), 0o644))
	_, err = LoadReplayFromFile(fs, "replays", "garbage")
	assert.Error(t, err)
}

func TestReplayRecorder(t *testing.T) {
	recorder := NewReplayRecorder(zap.NewNop(), afero.NewMemMapFs(), "replays")
	matchID := "match-123"

	recorder.StartRecording(matchID)
	assert.True(t, recorder.IsRecording(matchID))
	for i := 0; i < 5; i++ {
		recorder.RecordState(matchID, snapshotAt(matchID, i))
	}

	replay, exists := recorder.GetReplay(matchID)
	require.True(t, exists)
	assert.Equal(t, 5, replay.Size())

	recorder.StopRecording(matchID)
	assert.False(t, recorder.IsRecording(matchID))

	// Snapshots after stopping are ignored.
	recorder.RecordState(matchID, snapshotAt(matchID, 6))
	replay, _ = recorder.GetReplay(matchID)
	assert.Equal(t, 5, replay.Size())

	require.NoError(t, recorder.SaveReplay(matchID))
	_, exists = recorder.GetReplay(matchID)
	assert.False(t, exists)

	loaded, err := recorder.LoadReplay(matchID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Size())

	assert.Error(t, recorder.SaveReplay("unknown"))
}

func TestReplayRecorderClear(t *testing.T) {
	recorder := NewReplayRecorder(nil, afero.NewMemMapFs(), "replays")
	recorder.StartRecording("match-123")
	recorder.RecordState("match-123", snapshotAt("match-123", 0))

	recorder.ClearReplay("match-123")

	_, exists := recorder.GetReplay("match-123")
	assert.False(t, exists)
	assert.False(t, recorder.IsRecording("match-123"))
}

func TestReplayRecorderMultipleMatches(t *testing.T) {
	recorder := NewReplayRecorder(zap.NewNop(), afero.NewMemMapFs(), "replays")
	counts := map[string]int{"match-1": 3, "match-2": 5, "match-3": 7}

	for id, n := range counts {
		recorder.StartRecording(id)
		for i := 0; i < n; i++ {
			recorder.RecordState(id, snapshotAt(id, i))
		}
	}
	for id, n := range counts {
		require.NoError(t, recorder.SaveReplay(id))
		loaded, err := recorder.LoadReplay(id)
		require.NoError(t, err)
		assert.Equal(t, n, loaded.Size(), id)
	}
}
