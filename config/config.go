// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger rules: constants in protocol.go, identical for every chain
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Storage engine names accepted by storage.engine.
const (
	EngineBadger  = "badger"
	EngineBolt    = "bolt"
	EngineLevelDB = "leveldb"
	EngineFile    = "file"
	EngineMemory  = "memory"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// Chain persistence
	Storage StorageConfig

	// Sealing and batching
	Mining MiningConfig

	// RPC server
	RPC RPCConfig

	// Prometheus endpoint on the RPC listener
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// StorageConfig selects the chain store.
type StorageConfig struct {
	Engine string `conf:"storage.engine"` // badger, bolt, leveldb, file or memory
}

// MiningConfig holds block production settings.
// Difficulty applies to every block of a chain, genesis included; a chain
// written at one difficulty fails validation at another.
type MiningConfig struct {
	Difficulty int  `conf:"mining.difficulty"`
	Auto       bool `conf:"mining.auto"`     // Mine after every submission
	Interval   int  `conf:"mining.interval"` // Seconds between batch mines when auto is off (0 = manual only)
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `conf:"log.level"`
	File       string `conf:"log.file"`
	JSON       bool   `conf:"log.json"`
	MaxSizeMB  int    `conf:"log.maxsize"`
	MaxAgeDays int    `conf:"log.maxage"`
	MaxBackups int    `conf:"log.maxbackups"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.stockchain
//	macOS:   ~/Library/Application Support/Stockchain
//	Windows: %APPDATA%\Stockchain
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stockchain"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Stockchain")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Stockchain")
		}
		return filepath.Join(home, "AppData", "Roaming", "Stockchain")
	default:
		return filepath.Join(home, ".stockchain")
	}
}

// ChainDir returns the database directory for the key-value engines.
func (c *Config) ChainDir() string {
	return filepath.Join(c.DataDir, "chain", c.Storage.Engine)
}

// ChainFile returns the snapshot path used by the file engine.
func (c *Config) ChainFile() string {
	return filepath.Join(c.DataDir, "chain.json")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "stockchain.conf")
}

// RPCListenAddr returns the host:port the RPC server binds.
func (c *Config) RPCListenAddr() string {
	return joinHostPort(c.RPC.Addr, c.RPC.Port)
}

// RPCEndpoint returns the http URL clients use to reach the RPC server.
func (c *Config) RPCEndpoint() string {
	return "http://" + c.RPCListenAddr() + "/"
}
