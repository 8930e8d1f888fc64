package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/game/watchers"
	"github.com/clonesclash/clash-server-go/internal/game/world"
	"go.uber.org/zap"
)

var (
	// ErrMatchInProgress is returned when initialising a match that is playing.
	ErrMatchInProgress = errors.New("match in progress")
	// ErrMatchNotPlaying is returned for actions outside the playing state.
	ErrMatchNotPlaying = errors.New("match not playing")
	// ErrUnknownPlayer is returned for a player ID that is not in the match.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrMatchNotFound is returned by the manager for unknown match IDs.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchClosed is returned once a match has been torn down.
	ErrMatchClosed = errors.New("match closed")
	// ErrManagerClosed is returned when starting a match on a closed manager.
	ErrManagerClosed = errors.New("manager closed")
)

// MatchState is the lifecycle state of a match.
type MatchState int

const (
	MatchStateNotStarted MatchState = iota
	MatchStatePlaying
	MatchStateEnded
)

func (s MatchState) String() string {
	switch s {
	case MatchStateNotStarted:
		return "NOT_STARTED"
	case MatchStatePlaying:
		return "PLAYING"
	case MatchStateEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Player is one side of a match: its card economy and its three structures.
type Player struct {
	ID    string
	Name  string
	Cards *cards.PlayerCardModel

	HQ            *world.Entity
	TopOutpost    *world.Entity
	BottomOutpost *world.Entity
}

// Score counts surviving structures. A fallen HQ scores nothing, whatever
// the outposts look like.
func Score(hqHP, topHP, bottomHP int) int {
	if hqHP <= 0 {
		return 0
	}
	score := 1
	if topHP > 0 {
		score++
	}
	if bottomHP > 0 {
		score++
	}
	return score
}

// Score returns the player's current score.
func (p *Player) Score() int {
	return Score(hp(p.HQ), hp(p.TopOutpost), hp(p.BottomOutpost))
}

func hp(e *world.Entity) int {
	if e == nil {
		return 0
	}
	return e.HP
}

// Outcome is the result of a finished match.
type Outcome struct {
	Winner     string // player ID, empty on a tie
	WinnerName string
	Tie        bool
	LeftScore  int
	RightScore int
	Message    string
}

// DetermineOutcome compares two scores. Higher wins, equal is a tie.
func DetermineOutcome(left, right *Player) Outcome {
	out := Outcome{LeftScore: left.Score(), RightScore: right.Score()}
	switch {
	case out.LeftScore > out.RightScore:
		out.Winner, out.WinnerName = left.ID, left.Name
	case out.RightScore > out.LeftScore:
		out.Winner, out.WinnerName = right.ID, right.Name
	default:
		out.Tie = true
	}
	if out.Tie {
		out.Message = "Tie game!"
	} else {
		out.Message = fmt.Sprintf("%s won!", out.WinnerName)
	}
	return out
}

// RestartHandler reloads a match after the end-of-match delay. It is called
// without the match lock held.
type RestartHandler func(m *Match)

// EndHandler is told about every finished match, without the lock held.
type EndHandler func(m *Match, result MatchResult)

// MatchOption customises a match.
type MatchOption func(*Match)

// WithClock sets the clock used by Advance.
func WithClock(c rules.Clock) MatchOption {
	return func(m *Match) { m.clock = c }
}

// WithRand sets the random source shared by shuffles and AI.
func WithRand(rng *rand.Rand) MatchOption {
	return func(m *Match) { m.rng = rng }
}

// WithRestartHandler schedules a restart after the end-of-match delay.
func WithRestartHandler(h RestartHandler) MatchOption {
	return func(m *Match) { m.restartHandler = h }
}

// WithEndHandler registers a callback for finished matches.
func WithEndHandler(h EndHandler) MatchOption {
	return func(m *Match) {
		if h != nil {
			m.endHandlers = append(m.endHandlers, h)
		}
	}
}

// WithReplayRecorder records snapshots of the match.
func WithReplayRecorder(r *ReplayRecorder) MatchOption {
	return func(m *Match) { m.recorder = r }
}

// WithAI lets a random opponent play for the given players.
func WithAI(playerIDs ...string) MatchOption {
	return func(m *Match) { m.aiPlayers = append(m.aiPlayers, playerIDs...) }
}

// WithNotificationHandler forwards match notifications to h.
func WithNotificationHandler(h NotificationHandler) MatchOption {
	return func(m *Match) { m.notify = h }
}

// Match is a single two-player match. Its methods are safe for concurrent
// use; simulation work runs under the match lock, one step at a time.
type Match struct {
	ID       string
	settings Settings
	logger   *zap.Logger

	mu              sync.Mutex
	clock           rules.Clock
	rng             *rand.Rand
	bus             *rules.EventBus
	watcherRegistry *rules.WatcherRegistry
	sched           *rules.Scheduler

	cardsPlayed *watchers.CardsPlayedWatcher
	destroyed   *watchers.EntitiesDestroyedWatcher
	damage      *watchers.DamageDealtWatcher

	field     *battlefield
	players   map[string]*Player
	left      *Player
	right     *Player
	leftDeck  []*cards.CardDefinition
	rightDeck []*cards.CardDefinition

	state     MatchState
	games     int
	gameID    string // <match id>-<game number>, new on every init
	remaining time.Duration
	started   time.Duration // scheduler time at InitGame
	outcome   *Outcome
	closed    bool

	restartHandler RestartHandler
	restartTimer   *rules.Timer
	endHandlers    []EndHandler
	recorder       *ReplayRecorder
	notify         NotificationHandler
	aiPlayers      []string
	ai             []*RandomOpponent

	// deferred runs after the lock is released.
	deferred []func()
}

// NewMatch creates a match in the NotStarted state.
func NewMatch(id string, settings Settings, logger *zap.Logger, opts ...MatchOption) *Match {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Match{
		ID:       id,
		settings: settings.withDefaults(),
		logger:   logger.With(zap.String("match_id", id)),
		players:  make(map[string]*Player),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = rules.SystemClock{}
	}
	if m.rng == nil {
		seed := m.settings.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	m.bus = rules.NewEventBus()
	m.bus.SetMatchID(id)
	m.watcherRegistry = rules.NewWatcherRegistry()
	m.cardsPlayed, m.destroyed, m.damage = watchers.RegisterDefaults(m.watcherRegistry)
	m.bus.Subscribe(m.watcherRegistry.NotifyWatchers)
	m.bus.Subscribe(m.forwardEvent)

	m.sched = rules.NewScheduler(m.clock)
	// Registration errors only come from non-positive intervals, which
	// withDefaults rules out.
	_ = m.sched.Fixed("battlefield", m.settings.FixedStep, m.fixedUpdate)
	m.sched.EveryTick("lifecycle", m.update)
	if m.recorder != nil {
		_ = m.sched.Fixed("snapshot", m.settings.SnapshotInterval, m.recordSnapshot)
	}
	for _, pid := range m.aiPlayers {
		m.ai = append(m.ai, NewRandomOpponent(pid, m.rng, m.logger))
	}
	if len(m.ai) > 0 {
		_ = m.sched.Fixed("ai", m.settings.AIPlayInterval, m.aiTurn)
	}
	return m
}

// InitGame starts a new game with the given starting decks. A missing deck
// is logged and leaves that player without cards.
func (m *Match) InitGame(leftDeck, rightDeck []*cards.CardDefinition) error {
	m.mu.Lock()
	defer m.unlock()
	return m.initLocked(leftDeck, rightDeck)
}

func (m *Match) initLocked(leftDeck, rightDeck []*cards.CardDefinition) error {
	if m.closed {
		return ErrMatchClosed
	}
	if m.state == MatchStatePlaying {
		return ErrMatchInProgress
	}
	if m.restartTimer != nil {
		m.restartTimer.Stop()
		m.restartTimer = nil
	}

	m.field = newBattlefield(m.bus, m.settings.DirectionThreshold, m.logger)
	m.left = &Player{ID: PlayerLeft, Name: m.settings.LeftName}
	m.right = &Player{ID: PlayerRight, Name: m.settings.RightName}
	m.players = map[string]*Player{PlayerLeft: m.left, PlayerRight: m.right}
	m.leftDeck, m.rightDeck = leftDeck, rightDeck
	m.watcherRegistry.ResetWatchers()

	for _, pd := range []struct {
		p    *Player
		deck []*cards.CardDefinition
	}{{m.left, leftDeck}, {m.right, rightDeck}} {
		pd.p.Cards = cards.NewPlayerCardModel(pd.p.ID, m.settings.HandSize, m.rng, m.bus, m.logger)
		if err := pd.p.Cards.Init(pd.deck); err != nil && !errors.Is(err, cards.ErrNoDeck) {
			return fmt.Errorf("init cards for %s: %w", pd.p.ID, err)
		}
		m.field.spawnStructures(pd.p)
	}

	m.games++
	m.gameID = fmt.Sprintf("%s-%d", m.ID, m.games)
	m.state = MatchStatePlaying
	m.remaining = time.Duration(m.settings.MatchStartSeconds * float64(time.Second))
	m.started = m.sched.Elapsed()
	m.outcome = nil

	if m.recorder != nil {
		m.recorder.StartRecording(m.gameID)
		m.recorder.RecordState(m.gameID, m.snapshotLocked())
	}

	m.logger.Info("match started",
		zap.String("game_id", m.gameID),
		zap.String("left", m.left.Name),
		zap.String("right", m.right.Name),
		zap.Float64("seconds", m.settings.MatchStartSeconds))
	m.bus.Publish(rules.NewEvent(rules.EventMatchStarted, m.ID, "", ""))
	return nil
}

// Restart reloads an ended match with the decks of the previous game.
func (m *Match) Restart() error {
	m.mu.Lock()
	defer m.unlock()
	if m.state != MatchStateEnded {
		return fmt.Errorf("restart in state %s: %w", m.state, ErrMatchInProgress)
	}
	m.state = MatchStateNotStarted
	m.bus.Publish(rules.NewEvent(rules.EventMatchReset, m.ID, "", ""))
	return m.initLocked(m.leftDeck, m.rightDeck)
}

// PlayCard plays a card from a player's hand at a point on that player's
// half of the field.
func (m *Match) PlayCard(playerID, cardID string, at world.Vec3) error {
	m.mu.Lock()
	defer m.unlock()

	if m.state != MatchStatePlaying {
		return ErrMatchNotPlaying
	}
	p, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("%s: %w", playerID, ErrUnknownPlayer)
	}
	return m.playLocked(p, p.Cards.FindInHand(cardID), at)
}

func (m *Match) playLocked(p *Player, card *cards.Card, at world.Vec3) error {
	if err := p.Cards.PlayCard(card); err != nil {
		return err
	}
	spawned := m.field.spawnCard(p.ID, card.Definition, at)
	m.logger.Debug("card played",
		zap.String("player_id", p.ID),
		zap.String("card", card.Name()),
		zap.Int("units", len(spawned)))
	return nil
}

// Step advances the match by dt of simulated time.
func (m *Match) Step(dt time.Duration) {
	m.mu.Lock()
	defer m.unlock()
	if m.closed {
		return
	}
	m.sched.Step(dt)
}

// Advance advances the match by the clock time since the previous call.
func (m *Match) Advance() time.Duration {
	m.mu.Lock()
	defer m.unlock()
	if m.closed {
		return 0
	}
	return m.sched.Advance()
}

// Close tears the match down and cancels a pending restart. Safe to call
// more than once.
func (m *Match) Close() {
	m.mu.Lock()
	defer m.unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.restartTimer != nil {
		m.restartTimer.Stop()
		m.restartTimer = nil
	}
	m.sched.Close()
	if m.recorder != nil && m.gameID != "" {
		m.recorder.ClearReplay(m.gameID)
	}
	m.logger.Debug("match closed", zap.String("state", m.state.String()))
}

// unlock releases the lock and then runs deferred callbacks.
func (m *Match) unlock() {
	deferred := m.deferred
	m.deferred = nil
	m.mu.Unlock()
	for _, fn := range deferred {
		fn()
	}
}

func (m *Match) fixedUpdate(dt time.Duration) {
	if m.state != MatchStatePlaying {
		return
	}
	m.field.fixedUpdate(dt)
}

// update is the per-tick lifecycle pass: battlefield, clock, termination.
func (m *Match) update(dt time.Duration) {
	if m.state != MatchStatePlaying {
		return
	}
	m.field.update(dt)

	m.remaining -= dt
	if m.remaining < 0 {
		m.remaining = 0
	}
	if hp(m.left.HQ) <= 0 || hp(m.right.HQ) <= 0 || m.remaining <= 0 {
		m.end()
	}
}

func (m *Match) end() {
	m.state = MatchStateEnded
	outcome := DetermineOutcome(m.left, m.right)
	m.outcome = &outcome
	result := m.resultLocked()

	m.logger.Info("match ended",
		zap.String("winner", outcome.Winner),
		zap.Bool("tie", outcome.Tie),
		zap.Int("left_score", outcome.LeftScore),
		zap.Int("right_score", outcome.RightScore),
		zap.Float64("remaining_seconds", m.remaining.Seconds()))

	evt := rules.NewEventWithAmount(rules.EventMatchEnded, m.ID, "", outcome.Winner, outcome.LeftScore-outcome.RightScore)
	evt.Data = outcome.Message
	m.bus.Publish(evt)

	if m.recorder != nil {
		m.recorder.RecordState(m.gameID, m.snapshotLocked())
		m.recorder.StopRecording(m.gameID)
		recorder, gameID := m.recorder, m.gameID
		m.deferred = append(m.deferred, func() {
			if err := recorder.SaveReplay(gameID); err != nil {
				m.logger.Warn("failed to save replay",
					zap.String("game_id", gameID),
					zap.Error(err))
			}
		})
	}

	for _, h := range m.endHandlers {
		m.deferred = append(m.deferred, func() { h(m, result) })
	}

	if m.restartHandler != nil {
		handler := m.restartHandler
		m.restartTimer = m.sched.AfterFunc(m.settings.RestartDelay, func() {
			m.restartTimer = nil
			m.deferred = append(m.deferred, func() { handler(m) })
		})
	}
}

func (m *Match) aiTurn(time.Duration) {
	if m.state != MatchStatePlaying {
		return
	}
	for _, ai := range m.ai {
		if p, ok := m.players[ai.PlayerID()]; ok {
			ai.Act(m, p)
		}
	}
}

func (m *Match) recordSnapshot(time.Duration) {
	if m.state != MatchStatePlaying {
		return
	}
	snap := m.snapshotLocked()
	m.recorder.RecordState(m.gameID, snap)
	m.emit("STATE_UPDATE", "", map[string]interface{}{"snapshot": snap})
}

// GetOppositePlayer returns the other side of the match.
func (m *Match) GetOppositePlayer(p *Player) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.oppositeLocked(p)
}

func (m *Match) oppositeLocked(p *Player) *Player {
	switch {
	case p == nil:
		return nil
	case p == m.left || p.ID == PlayerLeft:
		return m.right
	case p == m.right || p.ID == PlayerRight:
		return m.left
	default:
		return nil
	}
}

// Player returns a player by ID.
func (m *Match) Player(id string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	return p, ok
}

// State returns the lifecycle state.
func (m *Match) State() MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsPlaying reports whether the match is in progress.
func (m *Match) IsPlaying() bool {
	return m.State() == MatchStatePlaying
}

// RemainingSeconds returns the match clock.
func (m *Match) RemainingSeconds() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining.Seconds()
}

// Outcome returns the result once the match has ended.
func (m *Match) Outcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil {
		return Outcome{}, false
	}
	return *m.outcome, true
}

// RestartPending reports whether a restart timer is armed.
func (m *Match) RestartPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restartTimer.Pending()
}

// Events exposes the match event bus for subscribers.
func (m *Match) Events() *rules.EventBus {
	return m.bus
}

// GameID identifies the current game. It changes on every restart, so each
// game of a match is archived and recorded separately.
func (m *Match) GameID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameID
}

// Result returns the archive record of the match so far.
func (m *Match) Result() MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resultLocked()
}

func (m *Match) resultLocked() MatchResult {
	res := MatchResult{
		MatchID:          m.ID,
		GameID:           m.gameID,
		Duration:         m.sched.Elapsed() - m.started,
		LeftCardsPlayed:  m.cardsPlayed.GetCount(PlayerLeft),
		RightCardsPlayed: m.cardsPlayed.GetCount(PlayerRight),
		LeftDamage:       m.damage.GetDamage(PlayerLeft),
		RightDamage:      m.damage.GetDamage(PlayerRight),
		EntitiesLost:     m.destroyed.GetTotalAmount(),
		EndedAt:          m.clock.Now(),
	}
	if m.outcome != nil {
		res.Winner = m.outcome.Winner
		res.WinnerName = m.outcome.WinnerName
		res.Tie = m.outcome.Tie
		res.LeftScore = m.outcome.LeftScore
		res.RightScore = m.outcome.RightScore
		res.Message = m.outcome.Message
	}
	return res
}
