package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* variables
// read through getenv.
func LoadConfig(getenv func(string) string) *Config {
	enabled := envBool(getenv, "RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt(getenv, "RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   envDuration(getenv, "RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration(getenv, "RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(envInt(getenv, "RATE_LIMIT_GENERATE_PER_HOUR", 30)),
	}
}

// DefaultEndpointConfigs returns the endpoint limits. Every route that runs
// the letter workflow shares generatePerHour.
func DefaultEndpointConfigs(generatePerHour int) []EndpointConfig {
	burst := max(1, generatePerHour/6)
	return []EndpointConfig{
		// Completion-backed routes (strictest limits)
		{Path: "/generate", Method: "POST", Limit: generatePerHour, Window: time.Hour, Burst: burst},
		{Path: "/generate/stream", Method: "POST", Limit: generatePerHour, Window: time.Hour, Burst: burst},
		{Path: "/feedback", Method: "POST", Limit: generatePerHour, Window: time.Hour, Burst: burst},
		{Path: "/feedback/stream", Method: "POST", Limit: generatePerHour, Window: time.Hour, Burst: burst},

		// Extraction only
		{Path: "/extract", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Reads use the default limit; health is unlimited (see MatchEndpoint)
	}
}

func envInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func envBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func envDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
