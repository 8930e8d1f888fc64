// Package league runs a round-robin league between decks and keeps the
// standings.
package league

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrLeagueStarted     = errors.New("league already started")
	ErrLeagueNotStarted  = errors.New("league not started")
	ErrNotEnoughEntrants = errors.New("not enough entrants")
	ErrDuplicateEntrant  = errors.New("entrant already joined")
	ErrPairingNotFound   = errors.New("pairing not found")
)

// Points awarded per match.
const (
	PointsWin  = 3
	PointsTie  = 1
	PointsLoss = 0
)

// State is the lifecycle state of a league.
type State int

const (
	StateWaiting State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Entrant is one deck taking part in the league.
type Entrant struct {
	Name   string
	Points int
	Wins   int
	Losses int
	Ties   int
	// ScoreFor and ScoreAgainst sum the structure scores of every match.
	ScoreFor     int
	ScoreAgainst int
}

// Played returns the number of recorded matches.
func (e Entrant) Played() int {
	return e.Wins + e.Losses + e.Ties
}

// Pairing is one scheduled match. Left plays the left side.
type Pairing struct {
	Left    string
	Right   string
	MatchID string
	Winner  string // entrant name, empty on a tie
	Played  bool
}

// Round groups the pairings played together.
type Round struct {
	Number   int
	Pairings []*Pairing
}

func (r *Round) finished() bool {
	for _, p := range r.Pairings {
		if !p.Played {
			return false
		}
	}
	return true
}

// Snapshot is a consistent copy of a league.
type Snapshot struct {
	ID        string
	Name      string
	State     State
	Standings []Entrant
	Rounds    []Round
	StartTime *time.Time
	EndTime   *time.Time
}

// League is a single round robin. It is safe for concurrent use.
type League struct {
	ID   string
	Name string

	mu        sync.RWMutex
	state     State
	entrants  map[string]*Entrant
	order     []string
	rounds    []*Round
	startTime *time.Time
	endTime   *time.Time
	logger    *zap.Logger
}

// New creates an empty league.
func New(name string, logger *zap.Logger) *League {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	return &League{
		ID:       id,
		Name:     name,
		state:    StateWaiting,
		entrants: make(map[string]*Entrant),
		logger:   logger.With(zap.String("league_id", id)),
	}
}

// AddEntrant registers a deck. Entrants can only join before Start.
func (l *League) AddEntrant(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateWaiting {
		return ErrLeagueStarted
	}
	if _, exists := l.entrants[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntrant, name)
	}
	l.entrants[name] = &Entrant{Name: name}
	l.order = append(l.order, name)
	return nil
}

// Start builds the schedule. Every entrant meets every other entrant once;
// an odd field gives one entrant a bye each round.
func (l *League) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateWaiting {
		return ErrLeagueStarted
	}
	if len(l.order) < 2 {
		return ErrNotEnoughEntrants
	}

	l.rounds = roundRobin(l.order)
	l.state = StateInProgress
	now := time.Now()
	l.startTime = &now

	l.logger.Info("league started",
		zap.String("name", l.Name),
		zap.Int("entrants", len(l.order)),
		zap.Int("rounds", len(l.rounds)),
	)
	return nil
}

// roundRobin uses the circle method: the first entrant stays put while the
// others rotate one seat per round. Sides alternate so nobody is always left.
func roundRobin(names []string) []*Round {
	seats := append([]string(nil), names...)
	if len(seats)%2 == 1 {
		seats = append(seats, "") // bye
	}
	n := len(seats)

	rounds := make([]*Round, 0, n-1)
	for r := 0; r < n-1; r++ {
		round := &Round{Number: r + 1}
		for i := 0; i < n/2; i++ {
			a, b := seats[i], seats[n-1-i]
			if a == "" || b == "" {
				continue
			}
			if (r+i)%2 == 1 {
				a, b = b, a
			}
			round.Pairings = append(round.Pairings, &Pairing{Left: a, Right: b})
		}
		rounds = append(rounds, round)

		// Rotate every seat but the first.
		last := seats[n-1]
		copy(seats[2:], seats[1:n-1])
		seats[1] = last
	}
	return rounds
}

// Next returns the first unplayed pairing in schedule order.
func (l *League) Next() (round int, pairing Pairing, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state != StateInProgress {
		return 0, Pairing{}, false
	}
	for _, r := range l.rounds {
		for _, p := range r.Pairings {
			if !p.Played {
				return r.Number, *p, true
			}
		}
	}
	return 0, Pairing{}, false
}

// RecordResult stores the outcome of the pairing between left and right in
// round. winner is the winning entrant's name, or empty for a tie. The
// scores are the structure scores each side finished with.
func (l *League) RecordResult(round int, left, right, winner, matchID string, leftScore, rightScore int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateInProgress {
		return ErrLeagueNotStarted
	}
	if round <= 0 || round > len(l.rounds) {
		return fmt.Errorf("invalid round number %d", round)
	}
	if winner != "" && winner != left && winner != right {
		return fmt.Errorf("winner %q did not play in %s vs %s", winner, left, right)
	}

	var pairing *Pairing
	for _, p := range l.rounds[round-1].Pairings {
		if p.Left == left && p.Right == right && !p.Played {
			pairing = p
			break
		}
	}
	if pairing == nil {
		return fmt.Errorf("%w: round %d %s vs %s", ErrPairingNotFound, round, left, right)
	}

	pairing.Played = true
	pairing.Winner = winner
	pairing.MatchID = matchID

	a, b := l.entrants[left], l.entrants[right]
	a.ScoreFor += leftScore
	a.ScoreAgainst += rightScore
	b.ScoreFor += rightScore
	b.ScoreAgainst += leftScore
	switch winner {
	case left:
		a.Wins++
		a.Points += PointsWin
		b.Losses++
		b.Points += PointsLoss
	case right:
		b.Wins++
		b.Points += PointsWin
		a.Losses++
		a.Points += PointsLoss
	default:
		a.Ties++
		a.Points += PointsTie
		b.Ties++
		b.Points += PointsTie
	}

	if l.allPlayed() {
		l.state = StateFinished
		now := time.Now()
		l.endTime = &now
		l.logger.Info("league finished", zap.String("leader", l.standingsLocked()[0].Name))
	}
	return nil
}

func (l *League) allPlayed() bool {
	for _, r := range l.rounds {
		if !r.finished() {
			return false
		}
	}
	return true
}

// State returns the lifecycle state.
func (l *League) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Standings returns the table ordered by points, then score difference,
// then wins, then name.
func (l *League) Standings() []Entrant {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.standingsLocked()
}

func (l *League) standingsLocked() []Entrant {
	table := make([]Entrant, 0, len(l.order))
	for _, name := range l.order {
		table = append(table, *l.entrants[name])
	}
	sort.SliceStable(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if da, db := a.ScoreFor-a.ScoreAgainst, b.ScoreFor-b.ScoreAgainst; da != db {
			return da > db
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.Name < b.Name
	})
	return table
}

// Snapshot returns a consistent copy of the league.
func (l *League) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rounds := make([]Round, 0, len(l.rounds))
	for _, r := range l.rounds {
		cp := Round{Number: r.Number, Pairings: make([]*Pairing, 0, len(r.Pairings))}
		for _, p := range r.Pairings {
			pc := *p
			cp.Pairings = append(cp.Pairings, &pc)
		}
		rounds = append(rounds, cp)
	}

	return Snapshot{
		ID:        l.ID,
		Name:      l.Name,
		State:     l.state,
		Standings: l.standingsLocked(),
		Rounds:    rounds,
		StartTime: cloneTime(l.startTime),
		EndTime:   cloneTime(l.endTime),
	}
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}
