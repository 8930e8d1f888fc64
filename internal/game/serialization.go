package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SerializationChecksum is a deterministic fingerprint of a snapshot. Two
// runs with the same seed, decks and inputs produce the same hash.
type SerializationChecksum struct {
	Hash      string // SHA-256 of the canonical representation
	Timestamp string // when the snapshot was taken
	Version   int
}

// ComputeChecksum hashes the snapshot, leaving out the wall-clock timestamp.
func (snapshot *MatchSnapshot) ComputeChecksum() (*SerializationChecksum, error) {
	data := snapshot.buildDeterministicRepresentation()

	hash := sha256.New()
	if _, err := hash.Write([]byte(data)); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	return &SerializationChecksum{
		Hash:      hex.EncodeToString(hash.Sum(nil)),
		Timestamp: snapshot.Timestamp.Format("2006-01-02T15:04:05.000Z"),
		Version:   1,
	}, nil
}

// buildDeterministicRepresentation writes the snapshot in a canonical text
// form. Players are ordered left then right and entities in registry order,
// both of which are stable for a given run. Floats are rounded to keep the
// hash independent of formatting noise.
func (snapshot *MatchSnapshot) buildDeterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%s|%s|%d|%.3f|%d\n",
		snapshot.MatchID,
		snapshot.GameID,
		snapshot.State,
		snapshot.Elapsed.Milliseconds(),
		snapshot.RemainingSeconds,
		snapshot.Shells,
	)

	for _, p := range snapshot.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d|%d|%d|%d|%d|%d|%s\n",
			p.ID,
			p.Name,
			p.HQ,
			p.TopOutpost,
			p.BottomOutpost,
			p.Score,
			p.DrawPile,
			p.DiscardPile,
			p.CardsPlayed,
			strings.Join(p.Hand, ","),
		)
	}

	for _, e := range snapshot.Entities {
		fmt.Fprintf(&buf, "ENTITY:%s|%s|%s|%.3f|%.3f|%.3f|%d|%d|%s\n",
			e.Handle,
			e.Name,
			e.Owner,
			e.X, e.Y, e.Z,
			e.HP,
			e.MaxHP,
			e.Target,
		)
	}

	return buf.String()
}

// VerifyChecksum reports whether the snapshot still matches a checksum.
func (snapshot *MatchSnapshot) VerifyChecksum(expected *SerializationChecksum) (bool, error) {
	if expected == nil {
		return false, fmt.Errorf("no checksum to verify against")
	}
	actual, err := snapshot.ComputeChecksum()
	if err != nil {
		return false, err
	}
	return actual.Hash == expected.Hash, nil
}
