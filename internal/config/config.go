package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string
	OwnerUser      string
	OwnerPassHash  string // bcrypt

	AIBaseURL        string
	AIAPIKey         string
	AITimeout        time.Duration
	AIMaxConcurrency int

	// FreeTierCostCeiling is the max AI cost-per-response a free-tier form
	// may carry when it goes live.
	FreeTierCostCeiling int

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr: addr,
		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		OwnerUser:      envOr("OWNER_USER", "owner"),
		OwnerPassHash:  envOr("OWNER_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		AIBaseURL:        envOr("AI_BASE_URL", "http://localhost:9090"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AITimeout:        time.Duration(envInt("AI_TIMEOUT_SEC", 15)) * time.Second,
		AIMaxConcurrency: envInt("AI_MAX_CONCURRENCY", 4),

		FreeTierCostCeiling: envInt("FREE_TIER_COST_CEILING", 15),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
