package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GameServer holds all configuration for the TCP gameplay server.
type GameServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	Backlog     int    `yaml:"backlog"`

	// UserStorePath is the JSON document the User Store persists to.
	// Shared with the auth server so resume/save round-trips across
	// the two processes.
	UserStorePath string `yaml:"user_store_path"`

	// Board rules
	GridSize int         `yaml:"grid_size"` // square side N (default 10)
	Fleet    []ShipClass `yaml:"fleet"`

	// AIName is the opponent name recorded in single-player game state and
	// snapshots, distinguishing a vs_ai saved game from a vs_player one.
	AIName string `yaml:"ai_name"`

	// MaxFramePayloadBytes bounds a single protocol frame.
	MaxFramePayloadBytes int `yaml:"max_frame_payload_bytes"`

	// WriteTimeout bounds a single outbound frame write so a stalled peer
	// cannot block the arbiter's notification path indefinitely.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// LogLevel: debug, info, warn, error (default: info).
	LogLevel string `yaml:"log_level"`
}

// DefaultGameServer returns GameServer config with sensible defaults.
func DefaultGameServer() GameServer {
	return GameServer{
		BindAddress:          "0.0.0.0",
		Port:                 5555,
		Backlog:              5,
		UserStorePath:        "data/users.json",
		GridSize:             10,
		Fleet:                DefaultFleet(),
		AIName:               "SERVEUR_IA",
		MaxFramePayloadBytes: 64 * 1024,
		WriteTimeout:         5 * time.Second,
		LogLevel:             "info",
	}
}

// LoadGameServer loads game server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadGameServer(path string) (GameServer, error) {
	cfg := DefaultGameServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
