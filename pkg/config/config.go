package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"polyomino-api/pkg/constants"
)

// Config holds environment-derived settings for the HTTP server.
type Config struct {
	SessionSecret    string
	Port             string
	ShapesFile       string
	PuzzlePoolFile   string
	GenerateDeadline time.Duration
}

// Load loads configuration from environment variables.
// Returns an error if SESSION_SECRET is not set, equals "changeme", or is
// too short to be a usable JWT signing key.
func Load() (*Config, error) {
	secret := os.Getenv("SESSION_SECRET")

	if secret == "" {
		return nil, errors.New("SECURITY ERROR: SESSION_SECRET environment variable is required but not set")
	}

	if secret == "changeme" {
		return nil, errors.New("SECURITY ERROR: SESSION_SECRET cannot be 'changeme' - please set a secure secret")
	}

	if len(secret) < 32 {
		return nil, errors.New("SECURITY ERROR: SESSION_SECRET must be at least 32 characters long")
	}

	deadline := constants.GenerateDeadline
	if raw := os.Getenv("GENERATE_DEADLINE_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return nil, errors.New("GENERATE_DEADLINE_MS must be a positive integer")
		}
		deadline = time.Duration(ms) * time.Millisecond
	}

	return &Config{
		SessionSecret:    secret,
		Port:             getEnv("PORT", constants.DefaultPort),
		ShapesFile:       getEnv("SHAPES_FILE", "/data/shapes.json"),
		PuzzlePoolFile:   getEnv("PUZZLE_POOL_FILE", ""),
		GenerateDeadline: deadline,
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
