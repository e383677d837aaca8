package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "datadir":
		cfg.DataDir = value

	// Storage
	case "storage.engine", "storage":
		cfg.Storage.Engine = strings.ToLower(value)

	// Mining
	case "mining.difficulty", "difficulty":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Mining.Difficulty = n
	case "mining.auto":
		cfg.Mining.Auto = parseBool(value)
	case "mining.interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Mining.Interval = n

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)
	case "log.maxsize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Log.MaxSizeMB = n
	case "log.maxage":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Log.MaxAgeDays = n
	case "log.maxbackups":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Log.MaxBackups = n

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string) error {
	d := Default()
	content := `# Stockchain Node Configuration
#
# Ledger rules (item id limits, block size) are fixed in the software.
# mining.difficulty is stored implicitly in every block: changing it on an
# existing ledger makes the stored chain fail validation.

# Data directory (default: ~/.stockchain)
# datadir = ~/.stockchain

# ============================================================================
# Storage
# ============================================================================

# Chain store: badger, bolt, leveldb, file (JSON snapshot) or memory
storage.engine = ` + d.Storage.Engine + `

# ============================================================================
# Mining
# ============================================================================

# Leading zero hex characters required in every block hash (0-64)
mining.difficulty = ` + strconv.Itoa(d.Mining.Difficulty) + `

# Seal a block after every submitted adjustment
mining.auto = true

# With mining.auto = false, seal pending adjustments every N seconds (0 = only on request)
# mining.interval = 0

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + strconv.Itoa(d.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# Serve Prometheus metrics at /metrics on the RPC listener
metrics.enabled = true

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file = ~/.stockchain/logs/stockchain.log
log.json = false
# log.maxsize = 100
# log.maxage = 30
# log.maxbackups = 5
`
	return os.WriteFile(path, []byte(content), 0644)
}
