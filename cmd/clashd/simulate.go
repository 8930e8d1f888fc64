package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/clonesclash/clash-server-go/internal/config"
	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/clonesclash/clash-server-go/internal/game/rules"
	"github.com/clonesclash/clash-server-go/internal/league"
	"github.com/clonesclash/clash-server-go/internal/repository"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simulateCount  int
	simulateLeague bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Fast-forward headless matches and print the outcomes",
	Long: `simulate plays AI-vs-AI matches on a manual clock, as fast as the CPU
allows. By default it plays the configured left and right decks -n times.
With --league every deck of the library meets every other deck once and the
final standings are printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return simulate(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateCount, "count", "n", 10, "number of matches to play")
	simulateCmd.Flags().BoolVar(&simulateLeague, "league", false, "play a round robin between every deck of the library")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger) error {
	lib, err := loadLibrary(afero.NewOsFs(), cfg.Decks)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, logger)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	var opts []game.ManagerOption
	if store != nil {
		opts = append(opts, game.WithResultStore(store))
	}
	sim := &simulator{
		matches: game.NewManager(logger, cfg.MatchSettings(), opts...),
		tick:    cfg.Match.TickInterval,
		seed:    cfg.Match.Seed,
		logger:  logger,
	}
	defer sim.matches.Close()
	if sim.seed == 0 {
		sim.seed = uint64(time.Now().UnixNano())
	}

	if simulateLeague {
		return sim.league(ctx, out, lib)
	}
	left, right, err := loadDecks(lib, cfg.Decks)
	if err != nil {
		return err
	}
	return sim.series(ctx, out, left, right, simulateCount)
}

// simulator plays matches one after the other on a manual clock.
type simulator struct {
	matches *game.Manager
	tick    time.Duration
	seed    uint64
	played  uint64
	logger  *zap.Logger
}

// play runs one AI-vs-AI match to its end. Every match gets its own seed
// derived from the base seed, so a run is reproducible as a whole.
func (s *simulator) play(ctx context.Context, left, right []*cards.CardDefinition) (game.MatchResult, error) {
	seed := s.seed + s.played
	s.played++

	start := time.Unix(0, 0).UTC()
	match, err := s.matches.StartMatch(left, right,
		game.WithAI(game.PlayerLeft, game.PlayerRight),
		game.WithClock(rules.NewManualClock(start)),
		game.WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))),
	)
	if err != nil {
		return game.MatchResult{}, err
	}
	defer func() { _ = s.matches.EndMatch(match.ID) }()

	for match.IsPlaying() {
		if err := ctx.Err(); err != nil {
			return game.MatchResult{}, err
		}
		match.Step(s.tick)
	}
	return match.Result(), nil
}

func (s *simulator) series(ctx context.Context, out io.Writer, left, right []*cards.CardDefinition, n int) error {
	var leftWins, rightWins, ties int
	for i := 1; i <= n; i++ {
		result, err := s.play(ctx, left, right)
		if err != nil {
			return err
		}
		switch {
		case result.Tie:
			ties++
		case result.Winner == game.PlayerLeft:
			leftWins++
		default:
			rightWins++
		}
		fmt.Fprintf(out, "match %3d  %d-%d  %-16s  %s\n",
			i, result.LeftScore, result.RightScore, result.Message, result.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(out, "\nleft %d  right %d  ties %d\n", leftWins, rightWins, ties)
	return nil
}

func (s *simulator) league(ctx context.Context, out io.Writer, lib *cards.Library) error {
	l := league.New("simulation", s.logger)
	for _, name := range lib.DeckNames() {
		if err := l.AddEntrant(name); err != nil {
			return err
		}
	}
	if err := l.Start(); err != nil {
		return err
	}

	for {
		round, pairing, ok := l.Next()
		if !ok {
			break
		}
		left, err := lib.Deck(pairing.Left)
		if err != nil {
			return err
		}
		right, err := lib.Deck(pairing.Right)
		if err != nil {
			return err
		}

		result, err := s.play(ctx, left, right)
		if err != nil {
			return err
		}
		winner := ""
		switch {
		case result.Tie:
		case result.Winner == game.PlayerLeft:
			winner = pairing.Left
		default:
			winner = pairing.Right
		}
		if err := l.RecordResult(round, pairing.Left, pairing.Right, winner, result.MatchID,
			result.LeftScore, result.RightScore); err != nil {
			return err
		}
		fmt.Fprintf(out, "round %2d  %-12s vs %-12s  %d-%d\n",
			round, pairing.Left, pairing.Right, result.LeftScore, result.RightScore)
	}

	fmt.Fprintf(out, "\n%-12s %3s %3s %3s %3s %4s\n", "deck", "P", "W", "T", "L", "PTS")
	for _, e := range l.Standings() {
		fmt.Fprintf(out, "%-12s %3d %3d %3d %3d %4d\n", e.Name, e.Played(), e.Wins, e.Ties, e.Losses, e.Points)
	}
	return nil
}
