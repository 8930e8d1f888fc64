// Package config loads the server configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CLASH_MATCH_SEED.
const EnvPrefix = "CLASH"

// Config is the full server configuration.
type Config struct {
	Match   MatchConfig   `mapstructure:"match"`
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Decks   DecksConfig   `mapstructure:"decks"`
	Replay  ReplayConfig  `mapstructure:"replay"`
}

// MatchConfig tunes every match.
type MatchConfig struct {
	HandSize           int           `mapstructure:"hand_size" validate:"gte=1,lte=8"`
	StartSeconds       float64       `mapstructure:"start_seconds" validate:"gt=0"`
	DirectionThreshold float64       `mapstructure:"direction_threshold" validate:"gt=0,lte=1"`
	RestartDelay       time.Duration `mapstructure:"restart_delay" validate:"gt=0"`
	FixedStep          time.Duration `mapstructure:"fixed_step" validate:"gt=0,gtefield=TickInterval"`
	TickInterval       time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	SnapshotInterval   time.Duration `mapstructure:"snapshot_interval" validate:"gt=0"`
	AIPlayInterval     time.Duration `mapstructure:"ai_play_interval" validate:"gt=0"`
	Seed               uint64        `mapstructure:"seed"`
	LeftName           string        `mapstructure:"left_name" validate:"required"`
	RightName          string        `mapstructure:"right_name" validate:"required"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// StorageConfig selects the match result archive.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=none sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required_unless=Driver none"`
}

// ServerConfig holds listen addresses. An empty address disables the listener.
type ServerConfig struct {
	GRPCAddress      string        `mapstructure:"grpc_address" validate:"omitempty,hostname_port"`
	WebsocketAddress string        `mapstructure:"websocket_address" validate:"omitempty,hostname_port"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DecksConfig points at the deck file and the deck each side plays.
type DecksConfig struct {
	Path  string `mapstructure:"path"`
	Left  string `mapstructure:"left" validate:"required"`
	Right string `mapstructure:"right" validate:"required"`
}

// ReplayConfig controls replay recording.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir" validate:"required_if=Enabled true"`
}

// MatchSettings converts the match section to game settings.
func (c *Config) MatchSettings() game.Settings {
	return game.Settings{
		HandSize:           c.Match.HandSize,
		MatchStartSeconds:  c.Match.StartSeconds,
		DirectionThreshold: c.Match.DirectionThreshold,
		RestartDelay:       c.Match.RestartDelay,
		FixedStep:          c.Match.FixedStep,
		TickInterval:       c.Match.TickInterval,
		SnapshotInterval:   c.Match.SnapshotInterval,
		AIPlayInterval:     c.Match.AIPlayInterval,
		Seed:               c.Match.Seed,
		LeftName:           c.Match.LeftName,
		RightName:          c.Match.RightName,
	}
}

func setDefaults(v *viper.Viper) {
	d := game.DefaultSettings()
	v.SetDefault("match.hand_size", d.HandSize)
	v.SetDefault("match.start_seconds", d.MatchStartSeconds)
	v.SetDefault("match.direction_threshold", d.DirectionThreshold)
	v.SetDefault("match.restart_delay", d.RestartDelay)
	v.SetDefault("match.fixed_step", d.FixedStep)
	v.SetDefault("match.tick_interval", d.TickInterval)
	v.SetDefault("match.snapshot_interval", d.SnapshotInterval)
	v.SetDefault("match.ai_play_interval", d.AIPlayInterval)
	v.SetDefault("match.seed", 0)
	v.SetDefault("match.left_name", d.LeftName)
	v.SetDefault("match.right_name", d.RightName)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("server.grpc_address", ":50051")
	v.SetDefault("server.websocket_address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("decks.path", "")
	v.SetDefault("decks.left", "default")
	v.SetDefault("decks.right", "default")

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")
}

// Load reads the configuration at path from the OS filesystem.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads the configuration at path from fs. An empty path yields the
// defaults plus environment overrides.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
