package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Stems
	StemsDir string
	Stems    int

	// Patterns
	Density   int     // instances per second of audio
	Threshold float64 // energy gate, log scale 0..1
	GridSize  int     // analysis grid width and height
	Bins      int     // analyser bins, power of two
	Seed      int64   // 0 keeps the default handles

	// Playback
	FPS    int
	Volume float64

	// Loading
	LoadTimeout time.Duration
	LoadRetries int
	LoadBackoff time.Duration

	LogFile string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		StemsDir: envStr("PATTERNS_STEMS_DIR", "assets/audio/patterns"),
		Stems:    5,

		Density:   envInt("PATTERNS_DENSITY", 10),
		Threshold: envFloat("PATTERNS_THRESHOLD", 0.415),
		GridSize:  envInt("PATTERNS_GRID_SIZE", 512),
		Bins:      envInt("PATTERNS_BINS", 32),
		Seed:      int64(envInt("PATTERNS_SEED", 0)),

		FPS:    envInt("PATTERNS_FPS", 60),
		Volume: envFloat("PATTERNS_VOLUME", 1.0),

		LoadTimeout: envDuration("PATTERNS_LOAD_TIMEOUT", 30*time.Second),
		LoadRetries: envInt("PATTERNS_LOAD_RETRIES", 3),
		LoadBackoff: envDuration("PATTERNS_LOAD_BACKOFF", 500*time.Millisecond),

		LogFile: envStr("PATTERNS_LOG_FILE", ""),
	}
}

// Validate rejects values the scene cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Density <= 0:
		return fmt.Errorf("PATTERNS_DENSITY must be positive, got %d", c.Density)
	case c.GridSize <= 0:
		return fmt.Errorf("PATTERNS_GRID_SIZE must be positive, got %d", c.GridSize)
	case c.Bins <= 0 || c.Bins&(c.Bins-1) != 0:
		return fmt.Errorf("PATTERNS_BINS must be a power of two, got %d", c.Bins)
	case c.FPS <= 0:
		return fmt.Errorf("PATTERNS_FPS must be positive, got %d", c.FPS)
	case c.Volume < 0 || c.Volume > 1:
		return fmt.Errorf("PATTERNS_VOLUME must be within [0,1], got %v", c.Volume)
	case c.LoadRetries <= 0:
		return fmt.Errorf("PATTERNS_LOAD_RETRIES must be positive, got %d", c.LoadRetries)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
