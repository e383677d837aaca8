package config

import (
	"net"
	"strconv"
)

// Default ports.
const (
	DefaultRPCPort = 8547
)

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Storage: StorageConfig{
			Engine: EngineBadger,
		},
		Mining: MiningConfig{
			Difficulty: DefaultDifficulty,
			Auto:       true,
			Interval:   0,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       DefaultRPCPort,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			JSON:       false,
			MaxSizeMB:  100,
			MaxAgeDays: 30,
			MaxBackups: 5,
		},
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
