package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clonesclash/clash-server-go/internal/config"
	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/clonesclash/clash-server-go/internal/repository"
	"github.com/clonesclash/clash-server-go/internal/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run matches in real time",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			select {
			case sig := <-sigChan:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
				cancel()
			case <-ctx.Done():
			}
		}()

		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// serve runs until ctx is cancelled, then shuts everything down.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting clash server",
		zap.String("version", version),
		zap.String("config", configPath),
	)

	fs := afero.NewOsFs()
	lib, err := loadLibrary(fs, cfg.Decks)
	if err != nil {
		return err
	}
	leftDeck, rightDeck, err := loadDecks(lib, cfg.Decks)
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

	opts := []game.ManagerOption{
		game.WithAutoRestart(),
		game.WithMatchOptions(game.WithAI(game.PlayerLeft, game.PlayerRight)),
	}
	if store != nil {
		opts = append(opts, game.WithResultStore(store))
	}
	if cfg.Replay.Enabled {
		opts = append(opts, game.WithRecorder(game.NewReplayRecorder(logger, fs, cfg.Replay.Dir)))
		logger.Info("replay recording enabled", zap.String("dir", cfg.Replay.Dir))
	}
	matches := game.NewManager(logger, cfg.MatchSettings(), opts...)
	defer matches.Close()

	hub := server.NewHub(matches, logger)
	matches.SetNotificationHandler(hub.Notify)
	go hub.Run(ctx)

	match, err := matches.StartMatch(leftDeck, rightDeck)
	if err != nil {
		return err
	}
	logger.Info("match running",
		zap.String("match_id", match.ID),
		zap.String("left_deck", cfg.Decks.Left),
		zap.String("right_deck", cfg.Decks.Right),
	)

	var grpcServer *server.GRPCServer
	if cfg.Server.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddress)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCAddress, err)
		}
		grpcServer = server.NewGRPCServer(logger)
		grpcServer.SetMatchesServing(true)
		go func() {
			if serveErr := grpcServer.Serve(lis); serveErr != nil {
				logger.Error("gRPC server error", zap.Error(serveErr))
			}
		}()
	}

	var httpServer *http.Server
	if cfg.Server.WebsocketAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		httpServer = &http.Server{
			Addr:              cfg.Server.WebsocketAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("starting websocket server", zap.String("address", cfg.Server.WebsocketAddress))
			if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
				logger.Error("websocket server error", zap.Error(wsErr))
			}
		}()
	}

	runMatches(ctx, matches, cfg.Match.TickInterval)

	logger.Info("shutting down gracefully...")
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("websocket server shutdown", zap.Error(err))
		}
	}

	logger.Info("clash server stopped")
	return nil
}

// runMatches drives every match off the wall clock until ctx is done.
func runMatches(ctx context.Context, matches *game.Manager, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			matches.Advance()
		}
	}
}
