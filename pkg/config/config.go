package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BridgeAddr      string
	BlockingEnabled bool // initial value; settings pushes override at runtime

	ThrottleWindow  time.Duration // per (technique, domain) pair
	MaxAttempts     int           // raw attempt retention cap
	MaxPairs        int           // distinct-pair cap after compaction
	CompactInterval time.Duration
	ExportInterval  time.Duration

	Outputs []string // enabled sinks: log, kafka, postgres, redis

	PGDSN    string
	PGTable  string
	RedisURL string
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getMillis(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

func getStringSlice(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func Load() Config {
	return Config{
		BridgeAddr:      getOr("BRIDGE_ADDR", "127.0.0.1:18400"),
		BlockingEnabled: getBool("BLOCKING_ENABLED", false),
		ThrottleWindow:  getMillis("THROTTLE_WINDOW_MS", 30*time.Second),
		MaxAttempts:     getInt("MAX_ATTEMPTS", 100),
		MaxPairs:        getInt("MAX_PAIRS", 50),
		CompactInterval: getMillis("COMPACT_INTERVAL_MS", 30*time.Second),
		ExportInterval:  getMillis("EXPORT_INTERVAL_MS", 2*time.Second),
		Outputs:         getStringSlice("OUTPUTS", "log"),
		PGDSN:           getOr("PG_DSN", ""),
		PGTable:         getOr("PG_TABLE", "attempt_counts"),
		RedisURL:        getOr("REDIS_URL", ""),
	}
}
