package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the server reads at startup. All values
// come from the environment (optionally via a .env file) with defaults
// matching the reference deployment.
type Config struct {
	Addr string

	// GraceWindow is how long a disconnected player's slot is preserved
	// before removal.
	GraceWindow time.Duration

	// SweepInterval is the period of the empty-room sweep.
	SweepInterval time.Duration

	// RateLimitPerMinute applies to the REST surface, per client IP.
	RateLimitPerMinute int

	// CodeAttempts bounds the draw-and-check loop in code generation.
	CodeAttempts int

	// DevLog switches zap to its development encoder.
	DevLog bool
}

// Load reads the environment. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:               getString("ADDR", ":8080"),
		GraceWindow:        getDuration("GRACE_WINDOW", 3*time.Minute),
		SweepInterval:      getDuration("SWEEP_INTERVAL", 10*time.Minute),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),
		CodeAttempts:       getInt("CODE_ATTEMPTS", 100),
		DevLog:             getBool("LOG_DEV", false),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
