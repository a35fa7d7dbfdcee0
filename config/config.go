package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Identity IdentityConfig
	Advisor  AdvisorConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
}

// IdentityConfig tunes the identity & profile reconciliation engine.
type IdentityConfig struct {
	// ProbeTimeout bounds the single session probe at startup.
	ProbeTimeout time.Duration
	// LoadingDeadline is the hard upper bound after which the loading flag
	// is forced false no matter what the probe or reconciliation are doing.
	LoadingDeadline time.Duration
	// CacheTTL is the profile cache time-to-live.
	CacheTTL time.Duration
	// DebounceWindow coalesces create attempts for the same principal.
	DebounceWindow time.Duration
	// SnapshotMaxAge is how old an offline snapshot may be before it is
	// considered stale and ignored.
	SnapshotMaxAge time.Duration
	// EmailVerificationDisabled mirrors the provider-side setting; when true,
	// newly provisioned profiles start out verified.
	EmailVerificationDisabled bool
	// ConnectivityInterval is how often the connectivity monitor probes.
	ConnectivityInterval time.Duration
}

type AdvisorConfig struct {
	BaseURL string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "pathfinder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Identity: IdentityConfig{
			ProbeTimeout:              getEnvAsDuration("IDENTITY_PROBE_TIMEOUT", 10*time.Second),
			LoadingDeadline:           getEnvAsDuration("IDENTITY_LOADING_DEADLINE", 15*time.Second),
			CacheTTL:                  getEnvAsDuration("IDENTITY_CACHE_TTL", 5*time.Minute),
			DebounceWindow:            getEnvAsDuration("IDENTITY_DEBOUNCE_WINDOW", 300*time.Millisecond),
			SnapshotMaxAge:            getEnvAsDuration("IDENTITY_SNAPSHOT_MAX_AGE", 24*time.Hour),
			EmailVerificationDisabled: getEnvAsBool("IDENTITY_EMAIL_VERIFICATION_DISABLED", false),
			ConnectivityInterval:      getEnvAsDuration("IDENTITY_CONNECTIVITY_INTERVAL", 30*time.Second),
		},
		Advisor: AdvisorConfig{
			BaseURL: getEnv("ADVISOR_ENGINE_URL", "http://localhost:8001"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Identity.ProbeTimeout >= c.Identity.LoadingDeadline {
		return fmt.Errorf("IDENTITY_PROBE_TIMEOUT must be shorter than IDENTITY_LOADING_DEADLINE")
	}

	return nil
}

// DSN builds a lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
