package config

import (
	"fmt"
	"slices"
)

var engines = []string{EngineBadger, EngineBolt, EngineLevelDB, EngineFile, EngineMemory}

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" && cfg.Storage.Engine != EngineMemory {
		return fmt.Errorf("datadir must be set")
	}
	if !slices.Contains(engines, cfg.Storage.Engine) {
		return fmt.Errorf("storage.engine must be one of %v", engines)
	}
	if cfg.Mining.Difficulty < 0 || cfg.Mining.Difficulty > MaxDifficulty {
		return fmt.Errorf("mining.difficulty must be in range [0, %d]", MaxDifficulty)
	}
	if cfg.Mining.Interval < 0 {
		return fmt.Errorf("mining.interval must be >= 0")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxAgeDays < 0 || cfg.Log.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits must be >= 0")
	}
	return nil
}
