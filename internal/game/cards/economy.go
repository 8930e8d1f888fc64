package cards

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"go.uber.org/zap"
)

var (
	// ErrEconomyExhausted is returned when a draw is requested and neither
	// the draw pile nor the discard pile holds a card.
	ErrEconomyExhausted = errors.New("card economy exhausted")
	// ErrCardNotInHand is returned when playing a card the hand does not hold.
	ErrCardNotInHand = errors.New("card not in hand")
	// ErrNoDeck is returned by Init when no starting deck is supplied.
	ErrNoDeck = errors.New("no starting deck")
)

// DefaultHandSize is the number of hand slots when none is configured.
const DefaultHandSize = 4

// PlayerCardModel owns one player's draw pile, discard pile and hand.
//
// Every card created at Init lives in exactly one of the three containers.
// The draw pile is ordered with the next draw at the back. The model is not
// safe for concurrent use; the owning match serialises access.
type PlayerCardModel struct {
	playerID string
	handSize int
	rng      *rand.Rand
	bus      *rules.EventBus
	logger   *zap.Logger

	drawPile    []*Card
	discardPile []*Card
	hand        []*Card

	total       int
	initialized bool
}

// NewPlayerCardModel creates an uninitialised economy for playerID. A nil
// rng is seeded from the wall clock. bus and logger may be nil.
func NewPlayerCardModel(playerID string, handSize int, rng *rand.Rand, bus *rules.EventBus, logger *zap.Logger) *PlayerCardModel {
	if handSize <= 0 {
		handSize = DefaultHandSize
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlayerCardModel{
		playerID: playerID,
		handSize: handSize,
		rng:      rng,
		bus:      bus,
		logger:   logger,
		hand:     make([]*Card, handSize),
	}
}

// Init builds the economy from a starting deck: the deck becomes the discard
// pile, the discard pile is shuffled into the draw pile and the hand is
// filled. An empty deck is logged and leaves the model untouched.
func (m *PlayerCardModel) Init(deck []*CardDefinition) error {
	defs := make([]*CardDefinition, 0, len(deck))
	for _, def := range deck {
		if def != nil {
			defs = append(defs, def)
		}
	}
	if len(defs) == 0 {
		m.logger.Warn("no starting deck, hand left uninitialized",
			zap.String("player_id", m.playerID))
		return ErrNoDeck
	}

	var held []*Card
	for _, c := range m.hand {
		if c != nil {
			held = append(held, c)
		}
	}
	if len(held) > 0 {
		m.logger.Warn("hand already holds cards, discarding them",
			zap.String("player_id", m.playerID),
			zap.Int("cards", len(held)))
	}

	m.drawPile = nil
	m.hand = make([]*Card, m.handSize)
	m.discardPile = make([]*Card, 0, len(defs))
	for _, def := range defs {
		m.discardPile = append(m.discardPile, NewCard(def))
	}
	m.initialized = true

	m.Shuffle()

	// Cards held before a re-init stay in the economy, waiting in discard.
	m.discardPile = append(m.discardPile, held...)
	m.total = len(m.drawPile) + len(m.discardPile)

	for i := range m.hand {
		card, err := m.DrawCard()
		if err != nil {
			m.publish(rules.NewEvent(rules.EventHandChanged, "", "", m.playerID))
			return fmt.Errorf("fill hand slot %d for %s: %w", i, m.playerID, err)
		}
		m.hand[i] = card

		changed := rules.NewEventWithAmount(rules.EventCardChanged, card.ID, "", m.playerID, i)
		changed.Data = card.Name()
		m.publish(changed)
	}

	m.logger.Debug("card economy initialized",
		zap.String("player_id", m.playerID),
		zap.Int("cards", m.total),
		zap.Int("hand_size", m.handSize))
	m.publish(rules.NewEvent(rules.EventHandChanged, "", "", m.playerID))
	return nil
}

// Shuffle moves the whole discard pile into the draw pile in a uniformly
// random order. The shuffled cards go underneath anything still in the draw
// pile. Shuffling an empty discard pile is allowed.
func (m *PlayerCardModel) Shuffle() {
	shuffled := m.discardPile
	m.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	m.drawPile = append(shuffled, m.drawPile...)
	m.discardPile = nil

	evt := rules.NewEventWithAmount(rules.EventDeckShuffled, "", "", m.playerID, len(m.drawPile))
	m.publish(evt)
}

// DrawCard removes and returns the top of the draw pile, shuffling the
// discard pile in first when the draw pile is empty. It fails with
// ErrEconomyExhausted when no card is left anywhere outside the hand.
func (m *PlayerCardModel) DrawCard() (*Card, error) {
	if len(m.drawPile) == 0 {
		m.Shuffle()
	}
	n := len(m.drawPile)
	if n == 0 {
		m.logger.Error("draw requested with no cards left",
			zap.String("player_id", m.playerID))
		return nil, fmt.Errorf("draw for %s: %w", m.playerID, ErrEconomyExhausted)
	}
	card := m.drawPile[n-1]
	m.drawPile[n-1] = nil
	m.drawPile = m.drawPile[:n-1]
	return card, nil
}

// PlayCard discards card and refills the slot it occupied with a fresh draw.
// The card is matched by identity. Playing a card that is not in hand is
// logged and changes nothing.
func (m *PlayerCardModel) PlayCard(card *Card) error {
	index := m.indexOf(card)
	if index < 0 {
		m.logger.Warn("card not in hand",
			zap.String("player_id", m.playerID),
			zap.String("card", card.Name()))
		id := ""
		if card != nil {
			id = card.ID
		}
		m.publish(rules.NewEvent(rules.EventCardNotInHand, id, "", m.playerID))
		return ErrCardNotInHand
	}

	m.discardPile = append(m.discardPile, card)
	m.hand[index] = nil

	next, err := m.DrawCard()
	if err != nil {
		return err
	}
	m.hand[index] = next

	played := rules.NewEvent(rules.EventCardPlayed, card.ID, "", m.playerID)
	played.Data = card.Name()
	m.publish(played)

	changed := rules.NewEventWithAmount(rules.EventCardChanged, next.ID, card.ID, m.playerID, index)
	changed.Data = next.Name()
	m.publish(changed)
	m.publish(rules.NewEvent(rules.EventHandChanged, "", "", m.playerID))
	return nil
}

// Peek returns the card the next draw would yield without removing it.
func (m *PlayerCardModel) Peek() (*Card, error) {
	if len(m.drawPile) == 0 {
		m.Shuffle()
	}
	if len(m.drawPile) == 0 {
		return nil, fmt.Errorf("peek for %s: %w", m.playerID, ErrEconomyExhausted)
	}
	return m.drawPile[len(m.drawPile)-1], nil
}

// GetRandomCardFromHand picks a hand slot uniformly at random. It returns
// nil when the hand is empty.
func (m *PlayerCardModel) GetRandomCardFromHand() *Card {
	occupied := make([]*Card, 0, len(m.hand))
	for _, c := range m.hand {
		if c != nil {
			occupied = append(occupied, c)
		}
	}
	if len(occupied) == 0 {
		return nil
	}
	return occupied[m.rng.IntN(len(occupied))]
}

// FindInHand returns the hand card with the given ID.
func (m *PlayerCardModel) FindInHand(cardID string) *Card {
	for _, c := range m.hand {
		if c != nil && c.ID == cardID {
			return c
		}
	}
	return nil
}

// PlayerID returns the owning player.
func (m *PlayerCardModel) PlayerID() string { return m.playerID }

// HandSize returns the number of hand slots.
func (m *PlayerCardModel) HandSize() int { return m.handSize }

// Hand returns a copy of the hand slots. Empty slots are nil.
func (m *PlayerCardModel) Hand() []*Card { return append([]*Card(nil), m.hand...) }

// DrawPile returns a copy of the draw pile, next draw last.
func (m *PlayerCardModel) DrawPile() []*Card { return append([]*Card(nil), m.drawPile...) }

// DiscardPile returns a copy of the discard pile.
func (m *PlayerCardModel) DiscardPile() []*Card { return append([]*Card(nil), m.discardPile...) }

// Total returns the number of cards created at Init.
func (m *PlayerCardModel) Total() int { return m.total }

// Initialized reports whether Init has built the economy.
func (m *PlayerCardModel) Initialized() bool { return m.initialized }

// HandNames lists the names in the hand slots, "" for an empty slot.
func (m *PlayerCardModel) HandNames() []string {
	names := make([]string, len(m.hand))
	for i, c := range m.hand {
		names[i] = c.Name()
	}
	return names
}

func (m *PlayerCardModel) indexOf(card *Card) int {
	if card == nil {
		return -1
	}
	for i, c := range m.hand {
		if c == card {
			return i
		}
	}
	return -1
}

func (m *PlayerCardModel) publish(evt rules.Event) {
	if m.bus != nil {
		m.bus.Publish(evt)
	}
}
