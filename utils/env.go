package utils

import (
	"os"
	"strconv"
	"time"
)

const (
	EnvAddress        = "YAMCS_ADDRESS"
	EnvInstance       = "YAMCS_INSTANCE"
	EnvProcessor      = "YAMCS_PROCESSOR"
	EnvRequestTimeout = "YAMCS_REQUEST_TIMEOUT"

	DefaultAddress   = "localhost:8090"
	DefaultProcessor = "realtime"
)

func GetEnvAsInt(envKey string, fallback int) int {
	if valStr := os.Getenv(envKey); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			return val
		}
	}
	return fallback
}

func GetEnv(envKey, fallback string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return fallback
}

// GetEnvAsDuration accepts Go durations ("1m30s") or plain seconds.
func GetEnvAsDuration(envKey string, fallback time.Duration) time.Duration {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
