package config

import (
	"os"
	"strconv"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// Treasury receives the platform's cut of every purchase. Hex address.
	Treasury string
	// PlatformFeeBps and ReferralFeeBps seed the platform config record
	// when it is initialized through the ops surface.
	PlatformFeeBps uint16
	ReferralFeeBps uint16

	// DevFaucet enables the ledger mint endpoint. Never enable outside
	// local development.
	DevFaucet bool

	// Optional event sinks. Empty means the sink is not wired.
	RedisURL     string
	KafkaBrokers string
	KafkaTopic   string
	PostgresDSN  string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("AGENTMEMORY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	kafkaTopic := os.Getenv("AGENTMEMORY_KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "agentmemory.events"
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		Treasury:       os.Getenv("AGENTMEMORY_TREASURY"),
		PlatformFeeBps: bpsFromEnv("AGENTMEMORY_PLATFORM_FEE_BPS", 500),
		ReferralFeeBps: bpsFromEnv("AGENTMEMORY_REFERRAL_FEE_BPS", 500),
		DevFaucet:      os.Getenv("AGENTMEMORY_DEV_FAUCET") == "true",
		RedisURL:       os.Getenv("AGENTMEMORY_REDIS_URL"),
		KafkaBrokers:   os.Getenv("AGENTMEMORY_KAFKA_BROKERS"),
		KafkaTopic:     kafkaTopic,
		PostgresDSN:    os.Getenv("AGENTMEMORY_POSTGRES_DSN"),
	}
}

func bpsFromEnv(key string, fallback uint16) uint16 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return fallback
	}
	return uint16(v)
}
