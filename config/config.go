// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Collection genesis: symbol, supply cap and access lists, fixed when
//     the ledger is first created
//   - Node settings: runtime configuration, can vary per deployment
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// Collection genesis file (JSON). Only read when the ledger database
	// is empty.
	Genesis string `conf:"genesis"`

	// Principals allowed to call the admin_* methods, hex encoded.
	Controllers []string `conf:"controllers"`

	// RPC server
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.ic-sft
//	macOS:   ~/Library/Application Support/IC-SFT
//	Windows: %APPDATA%\IC-SFT
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ic-sft"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "IC-SFT")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "IC-SFT")
		}
		return filepath.Join(home, "AppData", "Roaming", "IC-SFT")
	default:
		return filepath.Join(home, ".ic-sft")
	}
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.DataDir, "ledger")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "sft.conf")
}

// GenesisFile returns the collection genesis file path. An explicit
// setting wins over the default location in the data directory.
func (c *Config) GenesisFile() string {
	if c.Genesis != "" {
		return c.Genesis
	}
	return filepath.Join(c.DataDir, "genesis.json")
}
