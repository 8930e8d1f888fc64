package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const replayVersion = 1

// Replay is a recorded match as a sequence of snapshots.
type Replay struct {
	MatchID      string
	States       []*MatchSnapshot
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(matchID string) *Replay {
	return &Replay{
		MatchID: matchID,
		States:  make([]*MatchSnapshot, 0),
	}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(snapshot *MatchSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, snapshot)
}

// Start rewinds to the first snapshot.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = 0
}

// Next returns the current snapshot and moves forward.
func (r *Replay) Next() *MatchSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.States) {
		state := r.States[r.CurrentIndex]
		r.CurrentIndex++
		return state
	}
	return nil
}

// Previous moves back one snapshot and returns it.
func (r *Replay) Previous() *MatchSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.States[r.CurrentIndex]
	}
	return nil
}

// Skip moves by count snapshots, clamped to the recording.
func (r *Replay) Skip(count int) *MatchSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	newIndex := r.CurrentIndex + count
	if newIndex >= len(r.States) {
		newIndex = len(r.States) - 1
	}
	if newIndex < 0 {
		newIndex = 0
	}

	r.CurrentIndex = newIndex
	if r.CurrentIndex < len(r.States) {
		return r.States[r.CurrentIndex]
	}
	return nil
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.States)
}

// GetStateAt returns the snapshot at index.
func (r *Replay) GetStateAt(index int) *MatchSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.States) {
		return r.States[index]
	}
	return nil
}

func replayPath(directory, matchID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", matchID))
}

// SaveToFile writes the replay as gzip-compressed gob.
func (r *Replay) SaveToFile(fs afero.Fs, directory string) (err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := fs.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := fs.Create(replayPath(directory, r.MatchID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		MatchID:    r.MatchID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i, state := range r.States {
		if err := encoder.Encode(state); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip stream: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(fs afero.Fs, directory, matchID string) (*Replay, error) {
	file, err := fs.Open(replayPath(directory, matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.MatchID)
	for i := 0; i < metadata.StateCount; i++ {
		var state MatchSnapshot
		if err := decoder.Decode(&state); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.States = append(replay.States, &state)
	}
	return replay, nil
}

type replayMetadata struct {
	MatchID    string
	Timestamp  time.Time
	Version    int
	StateCount int
}

// ReplayRecorder keeps one replay per match and persists finished ones.
type ReplayRecorder struct {
	logger  *zap.Logger
	fs      afero.Fs
	mu      sync.RWMutex
	replays map[string]*Replay // matchID -> Replay
	enabled map[string]bool    // matchID -> whether recording is enabled
	saveDir string
}

// NewReplayRecorder creates a recorder writing into saveDir on fs.
func NewReplayRecorder(logger *zap.Logger, fs afero.Fs, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ReplayRecorder{
		logger:  logger,
		fs:      fs,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		saveDir: saveDir,
	}
}

// StartRecording begins a fresh recording for a match.
func (rr *ReplayRecorder) StartRecording(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[matchID] = NewReplay(matchID)
	rr.enabled[matchID] = true

	rr.logger.Info("started replay recording", zap.String("match_id", matchID))
}

// StopRecording stops adding snapshots for a match.
func (rr *ReplayRecorder) StopRecording(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[matchID] = false

	rr.logger.Info("stopped replay recording", zap.String("match_id", matchID))
}

// RecordState records a snapshot if recording is enabled.
func (rr *ReplayRecorder) RecordState(matchID string, snapshot *MatchSnapshot) {
	rr.mu.RLock()
	enabled := rr.enabled[matchID]
	replay := rr.replays[matchID]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}
	replay.RecordState(snapshot)

	rr.logger.Debug("recorded replay state",
		zap.String("match_id", matchID),
		zap.Int("state_count", replay.Size()),
	)
}

// GetReplay returns the in-memory replay of a match.
func (rr *ReplayRecorder) GetReplay(matchID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, exists := rr.replays[matchID]
	return replay, exists
}

// SaveReplay writes a replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(matchID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[matchID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for match %s", matchID)
	}
	delete(rr.replays, matchID)
	delete(rr.enabled, matchID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.fs, rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	rr.logger.Info("saved replay to disk",
		zap.String("match_id", matchID),
		zap.Int("state_count", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}

// LoadReplay reads a saved replay.
func (rr *ReplayRecorder) LoadReplay(matchID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.fs, rr.saveDir, matchID)
	if err != nil {
		return nil, err
	}

	rr.logger.Info("loaded replay from disk",
		zap.String("match_id", matchID),
		zap.Int("state_count", replay.Size()),
	)
	return replay, nil
}

// ClearReplay drops a replay without saving it.
func (rr *ReplayRecorder) ClearReplay(matchID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, matchID)
	delete(rr.enabled, matchID)

	rr.logger.Debug("cleared replay from memory", zap.String("match_id", matchID))
}

// IsRecording reports whether a match is being recorded.
func (rr *ReplayRecorder) IsRecording(matchID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return rr.enabled[matchID]
}
