package main

import (
	"fmt"
	"os"

	"github.com/clonesclash/clash-server-go/internal/config"
	"github.com/clonesclash/clash-server-go/internal/game/cards"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "clashd",
	Short: "Real-time card battle match server",
	Long: `clashd runs two-player card battle matches.

Available commands:
  serve      Run matches in real time with gRPC health and a websocket spectator feed
  simulate   Fast-forward headless matches and print the outcomes
  version    Print the version

Use "clashd [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults plus CLASH_* environment when empty)")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// loadLibrary reads the configured deck file, or the built-in catalog when
// none is set.
func loadLibrary(fs afero.Fs, cfg config.DecksConfig) (*cards.Library, error) {
	if cfg.Path == "" {
		return cards.DefaultLibrary(), nil
	}
	return cards.LoadDeckFile(fs, cfg.Path)
}

// loadDecks resolves the left and right decks.
func loadDecks(lib *cards.Library, cfg config.DecksConfig) (left, right []*cards.CardDefinition, err error) {
	left, err = lib.Deck(cfg.Left)
	if err != nil {
		return nil, nil, fmt.Errorf("left deck: %w", err)
	}
	right, err = lib.Deck(cfg.Right)
	if err != nil {
		return nil, nil, fmt.Errorf("right deck: %w", err)
	}
	return left, right, nil
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
