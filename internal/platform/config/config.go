package config

import (
	"os"
	"strings"
	"time"

	id "renoflow/pkg/domain"
)

// Server captures process-level configuration. Policy knobs (token validity,
// initial step) are injected from here into services so tests can run with
// alternate policies without touching call sites.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	KafkaBrokers  []string
	JWTSigningKey string

	// TokenValidity is the AMO validation-token window (30 days by default).
	TokenValidity time.Duration

	// InitialStep is the step a freshly created journey starts on.
	InitialStep id.Step

	// DecisionBaseURL prefixes the one-time decision links mailed to
	// assistance companies.
	DecisionBaseURL string

	// SyncInterval is the period of the case-status sync worker.
	SyncInterval time.Duration
}

// RedisConfig captures the optional redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("RENOFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenValidity := 30 * 24 * time.Hour
	if raw := os.Getenv("VALIDATION_TOKEN_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			tokenValidity = d
		}
	}

	initialStep := id.StepCompanyChoice
	if raw := os.Getenv("JOURNEY_INITIAL_STEP"); raw != "" {
		if step, err := id.ParseStep(raw); err == nil {
			initialStep = step
		}
	}

	decisionBaseURL := os.Getenv("DECISION_BASE_URL")
	if decisionBaseURL == "" {
		decisionBaseURL = "https://renoflow.example/amo/validation"
	}

	syncInterval := 15 * time.Minute
	if raw := os.Getenv("CASE_SYNC_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			syncInterval = d
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis:         redisFromEnv(),
		KafkaBrokers:  brokers,
		JWTSigningKey: jwtSigningKey,
		TokenValidity: tokenValidity,
		InitialStep:   initialStep,

		DecisionBaseURL: decisionBaseURL,
		SyncInterval:    syncInterval,
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
