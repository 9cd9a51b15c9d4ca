// Package config loads YAML-backed configuration for the auth and game
// server processes. Each process gets its own struct with a Default*
// constructor and a Load* function that falls back to the defaults when
// the file is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShipClass is one (name, length) entry of the fleet every player must
// place before a game starts.
type ShipClass struct {
	Name   string `yaml:"name"`
	Length int    `yaml:"length"`
}

// DefaultFleet returns the classic Battleship fleet used when a config
// file doesn't override it.
func DefaultFleet() []ShipClass {
	return []ShipClass{
		{Name: "Porte-avions", Length: 5},
		{Name: "Cuirasse", Length: 4},
		{Name: "Croiseur", Length: 3},
		{Name: "Sous-marin", Length: 3},
		{Name: "Torpilleur", Length: 2},
	}
}

// AuthServer holds all configuration for the auth listener process.
type AuthServer struct {
	// Network — the datagram endpoint clients send AUTH_LOGIN/AUTH_REGISTER to.
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// RendezvousHost/Port are the TCP gameplay endpoint advertised to a
	// successfully-authenticated client.
	RendezvousHost string `yaml:"rendezvous_host"`
	RendezvousPort int    `yaml:"rendezvous_port"`

	// LogLevel: debug, info, warn, error (default: info).
	LogLevel string `yaml:"log_level"`

	// UserStorePath is the JSON document the User Store persists to.
	UserStorePath string `yaml:"user_store_path"`

	// MinPasswordLength rejects registration below this length.
	MinPasswordLength int `yaml:"min_password_length"`

	// WorkerPoolSize bounds how many datagrams are processed concurrently.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// ReceiveTimeoutMS bounds, in milliseconds, how long a single
	// ReadFromUDP blocks, so the
	// listener can observe context cancellation promptly on shutdown.
	ReceiveTimeoutMS int `yaml:"receive_timeout_ms"`
}

// DefaultAuthServer returns AuthServer config with sensible defaults.
func DefaultAuthServer() AuthServer {
	return AuthServer{
		BindAddress:       "0.0.0.0",
		Port:              5554,
		RendezvousHost:    "127.0.0.1",
		RendezvousPort:    5555,
		LogLevel:          "info",
		UserStorePath:     "data/users.json",
		MinPasswordLength: 4,
		WorkerPoolSize:    64,
		ReceiveTimeoutMS:  500,
	}
}

// LoadAuthServer loads auth server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadAuthServer(path string) (AuthServer, error) {
	cfg := DefaultAuthServer()

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
