package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Auth configuration
	JWTSecret string
	TokenTTL  time.Duration

	// Betting configuration
	WinnerPoints   int           // points credited to a bet winner on settlement
	RequestTimeout time.Duration // per-operation budget for mutating calls

	// Realtime configuration
	NATSURL   string
	NATSToken string

	// Avatar storage configuration
	AvatarDir     string
	AvatarBaseURL string

	// Environment
	Environment string // "development", "test" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from a .env file (if present) and the environment
func load() (*Config, error) {
	// Missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Auth
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  7 * 24 * time.Hour,

		// Betting defaults
		WinnerPoints:   10,
		RequestTimeout: 10 * time.Second,

		// Realtime
		NATSURL:   os.Getenv("NATS_URL"),
		NATSToken: os.Getenv("NATS_TOKEN"),

		// Avatar storage
		AvatarDir:     os.Getenv("AVATAR_DIR"),
		AvatarBaseURL: os.Getenv("AVATAR_BASE_URL"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if points := os.Getenv("WINNER_POINTS"); points != "" {
		if parsed, err := strconv.Atoi(points); err == nil {
			config.WinnerPoints = parsed
		}
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			config.TokenTTL = parsed
		}
	}
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			config.RequestTimeout = parsed
		}
	}

	if config.AvatarDir == "" {
		config.AvatarDir = "data/avatars"
	}
	if config.AvatarBaseURL == "" {
		config.AvatarBaseURL = "/avatars"
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	}

	return config, nil
}
