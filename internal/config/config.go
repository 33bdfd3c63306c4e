// Package config loads server settings from the environment via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

type GameConfig struct {
	// TeamCapacity caps how many players a single team may hold.
	TeamCapacity int `mapstructure:"team_capacity"`
	// RoomCodeLength is the length of generated room join codes.
	RoomCodeLength int `mapstructure:"room_code_length"`
	// ClientBuffer is the per-socket snapshot buffer; a client this far
	// behind the broadcast stream is dropped.
	ClientBuffer int `mapstructure:"client_buffer"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
}

// Load reads configuration from LOBBY_-prefixed environment variables
// (e.g. LOBBY_SERVER_PORT) layered over built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("game.team_capacity", 5)
	v.SetDefault("game.room_code_length", 6)
	v.SetDefault("game.client_buffer", 8)

	v.SetEnvPrefix("LOBBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Game.TeamCapacity <= 0 {
		return nil, fmt.Errorf("team capacity must be positive, got %d", cfg.Game.TeamCapacity)
	}
	if cfg.Game.RoomCodeLength <= 0 {
		return nil, fmt.Errorf("room code length must be positive, got %d", cfg.Game.RoomCodeLength)
	}
	if cfg.Game.ClientBuffer <= 0 {
		return nil, fmt.Errorf("client buffer must be positive, got %d", cfg.Game.ClientBuffer)
	}

	return &cfg, nil
}
