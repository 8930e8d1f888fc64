package game

import (
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/world"
)

// MatchSnapshot is a point-in-time copy of a match, used for replays,
// spectators and checksums.
type MatchSnapshot struct {
	MatchID          string
	GameID           string
	State            MatchState
	Elapsed          time.Duration
	RemainingSeconds float64
	Players          []PlayerSnapshot
	Entities         []EntitySnapshot
	Shells           int
	Timestamp        time.Time
}

// PlayerSnapshot captures one side of the match.
type PlayerSnapshot struct {
	ID            string
	Name          string
	HQ            int
	TopOutpost    int
	BottomOutpost int
	Score         int
	Hand          []string
	DrawPile      int
	DiscardPile   int
	CardsPlayed   int
}

// EntitySnapshot captures one entity on the field.
type EntitySnapshot struct {
	Handle string
	Name   string
	Owner  string
	X      float64
	Y      float64
	Z      float64
	HP     int
	MaxHP  int
	Target string
}

// Snapshot returns the current state of the match.
func (m *Match) Snapshot() *MatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Match) snapshotLocked() *MatchSnapshot {
	snap := &MatchSnapshot{
		MatchID:          m.ID,
		GameID:           m.gameID,
		State:            m.state,
		Elapsed:          m.sched.Elapsed() - m.started,
		RemainingSeconds: m.remaining.Seconds(),
		Timestamp:        m.clock.Now(),
	}
	for _, p := range []*Player{m.left, m.right} {
		if p == nil {
			continue
		}
		ps := PlayerSnapshot{
			ID:            p.ID,
			Name:          p.Name,
			HQ:            hp(p.HQ),
			TopOutpost:    hp(p.TopOutpost),
			BottomOutpost: hp(p.BottomOutpost),
			Score:         p.Score(),
			CardsPlayed:   m.cardsPlayed.GetCount(p.ID),
		}
		if p.Cards != nil {
			ps.Hand = p.Cards.HandNames()
			ps.DrawPile = len(p.Cards.DrawPile())
			ps.DiscardPile = len(p.Cards.DiscardPile())
		}
		snap.Players = append(snap.Players, ps)
	}
	if m.field == nil {
		return snap
	}
	m.field.reg.Each(func(e *world.Entity) {
		es := EntitySnapshot{
			Handle: e.Handle.String(),
			Name:   e.Name,
			Owner:  e.Owner,
			X:      e.Position.X,
			Y:      e.Position.Y,
			Z:      e.Position.Z,
			HP:     e.HP,
			MaxHP:  e.MaxHP,
		}
		if u := m.field.unitFor(e.Handle); u != nil && !u.aggro.Target().IsZero() {
			es.Target = u.aggro.Target().String()
		}
		snap.Entities = append(snap.Entities, es)
	})
	snap.Shells = m.field.shellCount()
	return snap
}
