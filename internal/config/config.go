// Package config loads process configuration from the environment (with
// an optional .env file), grounded on moonhole-HoldemIJ's
// apps/server/internal/auth.authModeFromEnv env-mode-selection idiom.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AIMode selects which policy backs AI-controlled seats.
type AIMode string

const (
	AIModeRandom   AIMode = "random"
	AIModeStrategy AIMode = "strategy"
	AIModePassive  AIMode = "passive"
)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	ListenAddr string

	SmallBlind    int
	BigBlind      int
	StartingStack int
	SessionTTL    time.Duration

	AIMode         AIMode
	AISeed         int64
	AITurnDelay    time.Duration
	AIStrategyPath string
	AIPersonaPath  string

	HandEndPause time.Duration
	HandStrengthSamples int

	ReplayEnabled  bool
	ReplayCapacity int
	ReplayDBPath   string

	GameTrace bool
}

// Load reads an optional .env file (missing is not an error) and then
// the process environment, filling defaults for anything unset.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:          envOr("LISTEN_ADDR", ":8080"),
		SmallBlind:          envInt("SMALL_BLIND", 5),
		BigBlind:            envInt("BIG_BLIND", 10),
		StartingStack:       envInt("STARTING_STACK", 1000),
		SessionTTL:          envDuration("SESSION_TTL", 30*time.Minute),
		AIMode:              aiModeFromEnv(),
		AISeed:              envInt64("AI_SEED", 1),
		AITurnDelay:         envDuration("AI_TURN_DELAY_MS", 800*time.Millisecond),
		AIStrategyPath:      envOr("AI_STRATEGY_PATH", ""),
		AIPersonaPath:       envOr("AI_PERSONA_PATH", ""),
		HandEndPause:        envDuration("HAND_END_PAUSE_MS", 5000*time.Millisecond),
		HandStrengthSamples: envInt("HAND_STRENGTH_SAMPLES", 0),
		ReplayEnabled:       envBool("REPLAY_ENABLED", false),
		ReplayCapacity:      envInt("REPLAY_CAPACITY", 500),
		ReplayDBPath:        envOr("REPLAY_DB_PATH", "replay.db"),
		GameTrace:           envBool("GAME_TRACE", false),
	}

	if cfg.AIMode == "" {
		return cfg, fmt.Errorf("invalid AI_MODE %q (supported: %s, %s, %s)",
			os.Getenv("AI_MODE"), AIModeRandom, AIModeStrategy, AIModePassive)
	}
	return cfg, nil
}

func aiModeFromEnv() AIMode {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("AI_MODE")))
	switch raw {
	case "", "random", "uniform":
		return AIModeRandom
	case "strategy", "table":
		return AIModeStrategy
	case "passive":
		return AIModePassive
	default:
		return ""
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}
