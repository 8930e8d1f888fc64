package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/clonesclash/clash-server-go/internal/game/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const resultSaveTimeout = 5 * time.Second

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithResultStore archives every finished match.
func WithResultStore(store ResultStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithRecorder records every match the manager starts.
func WithRecorder(r *ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// WithAutoRestart reloads finished matches after the restart delay.
func WithAutoRestart() ManagerOption {
	return func(m *Manager) { m.autoRestart = true }
}

// WithMatchOptions applies opts to every match the manager starts.
func WithMatchOptions(opts ...MatchOption) ManagerOption {
	return func(m *Manager) { m.matchOpts = append(m.matchOpts, opts...) }
}

// Manager owns the running matches of a process.
type Manager struct {
	matches  map[string]*Match
	mu       sync.RWMutex
	logger   *zap.Logger
	settings Settings

	store               ResultStore
	recorder            *ReplayRecorder
	autoRestart         bool
	matchOpts           []MatchOption
	notificationHandler NotificationHandler

	saves  sync.WaitGroup
	closed bool
}

// NewManager creates an empty match manager.
func NewManager(logger *zap.Logger, settings Settings, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		matches:  make(map[string]*Match),
		logger:   logger,
		settings: settings,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetNotificationHandler sets the handler for notifications of matches
// started afterwards.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationHandler = handler
}

// StartMatch creates and starts a match with the given decks.
func (m *Manager) StartMatch(leftDeck, rightDeck []*cards.CardDefinition, opts ...MatchOption) (*Match, error) {
	m.mu.RLock()
	handler := m.notificationHandler
	m.mu.RUnlock()

	base := []MatchOption{WithEndHandler(m.onMatchEnded)}
	if handler != nil {
		base = append(base, WithNotificationHandler(handler))
	}
	if m.recorder != nil {
		base = append(base, WithReplayRecorder(m.recorder))
	}
	if m.autoRestart {
		base = append(base, WithRestartHandler(m.restart))
	}
	base = append(base, m.matchOpts...)
	base = append(base, opts...)

	match := NewMatch(uuid.New().String(), m.settings, m.logger, base...)
	if err := match.InitGame(leftDeck, rightDeck); err != nil {
		match.Close()
		return nil, fmt.Errorf("start match: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		match.Close()
		return nil, fmt.Errorf("start match: %w", ErrManagerClosed)
	}
	m.matches[match.ID] = match
	m.mu.Unlock()

	m.logger.Info("match created", zap.String("match_id", match.ID))
	return match, nil
}

// GetMatch retrieves a match by ID.
func (m *Manager) GetMatch(matchID string) (*Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", matchID, ErrMatchNotFound)
	}
	return match, nil
}

// PlayCard plays a card in a match.
func (m *Manager) PlayCard(matchID, playerID, cardID string, at world.Vec3) error {
	match, err := m.GetMatch(matchID)
	if err != nil {
		return err
	}
	return match.PlayCard(playerID, cardID, at)
}

// EndMatch tears a match down and forgets it.
func (m *Manager) EndMatch(matchID string) error {
	m.mu.Lock()
	match, ok := m.matches[matchID]
	delete(m.matches, matchID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", matchID, ErrMatchNotFound)
	}
	match.Close()
	m.logger.Info("match removed", zap.String("match_id", matchID))
	return nil
}

// Matches returns the running matches ordered by ID.
func (m *Manager) Matches() []*Match {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*Match, 0, len(m.matches))
	for _, match := range m.matches {
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

// GetActiveMatchCount returns the number of matches being played.
func (m *Manager) GetActiveMatchCount() int {
	count := 0
	for _, match := range m.Matches() {
		if match.IsPlaying() {
			count++
		}
	}
	return count
}

// Step advances every match by dt.
func (m *Manager) Step(dt time.Duration) {
	for _, match := range m.Matches() {
		match.Step(dt)
	}
}

// Advance advances every match by its own clock.
func (m *Manager) Advance() {
	for _, match := range m.Matches() {
		match.Advance()
	}
}

// Close ends every match and waits for pending result saves.
func (m *Manager) Close() {
	m.mu.Lock()
	matches := m.matches
	m.matches = make(map[string]*Match)
	m.mu.Unlock()

	for _, match := range matches {
		match.Close()
	}

	// Saves queued from here on would race the Wait below.
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.saves.Wait()
}

func (m *Manager) restart(match *Match) {
	if err := match.Restart(); err != nil {
		m.logger.Warn("failed to restart match",
			zap.String("match_id", match.ID),
			zap.Error(err))
	}
}

func (m *Manager) onMatchEnded(match *Match, result MatchResult) {
	m.logger.Info("match finished",
		zap.String("match_id", match.ID),
		zap.String("game_id", result.GameID),
		zap.String("message", result.Message),
		zap.Duration("duration", result.Duration))

	if m.store == nil {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Warn("dropping match result after close",
			zap.String("match_id", result.MatchID),
			zap.String("game_id", result.GameID))
		return
	}
	m.saves.Add(1)
	m.mu.Unlock()
	go func() {
		defer m.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), resultSaveTimeout)
		defer cancel()
		if err := m.store.SaveResult(ctx, result); err != nil {
			m.logger.Error("failed to save match result",
				zap.String("match_id", result.MatchID),
				zap.String("game_id", result.GameID),
				zap.Error(err))
		}
	}()
}

// WaitForSaves blocks until queued result saves have finished.
func (m *Manager) WaitForSaves() {
	m.saves.Wait()
}
