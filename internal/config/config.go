package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout (ex: 2s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ProjectsFile   string        // path to the projects.yaml file
	ReloadInterval time.Duration // interval to reload projects.yaml (default: 1h)

	// Deferred links
	Store          string        // "redis" | "memory"
	RecordTTL      time.Duration // lifetime of a stored deferred link (default: 7 days)
	SweepInterval  time.Duration // expiry sweep of the memory store (default: 10m)
	DedupeWindow   time.Duration // idempotency window for creates (default: 10m)
	DedupeCacheMB  int           // freecache size for the idempotency window
	MaxRecordBytes int64         // max accepted request body

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedOrigins []string // CORS origins allowed to call /deferred-links ("*" allows any)
	AllowedCIDRS   []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy     bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateBurst      int      // per-client burst on /deferred-links
	RatePerMin     int      // per-client refill on /deferred-links
}

var dotenvOnce sync.Once

func Load() *Config {
	dotenvOnce.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()
	})

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("HANDOFF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("HANDOFF_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("HANDOFF_REQUEST_TIMEOUT", 2*time.Second),

		// Logging
		LogLevel:  getenv("HANDOFF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("HANDOFF_PRETTY_LOG", true),

		// Projects
		ProjectsFile:   requireEnv("HANDOFF_PROJECTS_FILE"),
		ReloadInterval: mustDuration("HANDOFF_RELOAD_INTERVAL", time.Hour),

		// Deferred links
		Store:          strings.ToLower(getenv("HANDOFF_STORE", StoreRedis)),
		RecordTTL:      mustDuration("HANDOFF_RECORD_TTL", 7*24*time.Hour),
		SweepInterval:  mustDuration("HANDOFF_SWEEP_INTERVAL", 10*time.Minute),
		DedupeWindow:   mustDuration("HANDOFF_DEDUPE_WINDOW", 10*time.Minute),
		DedupeCacheMB:  getenvInt("HANDOFF_DEDUPE_CACHE_MB", 16),
		MaxRecordBytes: int64(getenvInt("HANDOFF_MAX_RECORD_BYTES", 64<<10)),

		// Access restrictions
		AllowedOrigins: splitAndTrim(getenv("HANDOFF_ALLOWED_ORIGINS", "")),
		AllowedCIDRS:   parseAllowedIPs(getenv("HANDOFF_ALLOWED_CIDRS", "")),
		TrustProxy:     mustBool("HANDOFF_TRUST_PROXY", false),
		RateBurst:      getenvInt("HANDOFF_RATE_BURST", 30),
		RatePerMin:     getenvInt("HANDOFF_RATE_PER_MIN", 60),
	}

	switch cfg.Store {
	case StoreRedis:
		cfg.loadRedis()
	case StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: HANDOFF_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.Store))
	}

	if cfg.RecordTTL <= 0 {
		panic("❌ FATAL: HANDOFF_RECORD_TTL must be > 0")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (cfg *Config) loadRedis() {
	cfg.RedisAddr = requireEnv("HANDOFF_REDIS_ADDR")
	cfg.RedisUser = getenv("HANDOFF_REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("HANDOFF_REDIS_PASSWORD_REQUIRED", true)
	cfg.RedisPassword = getenv("HANDOFF_REDIS_PASSWORD", "")
	cfg.RedisDB = getenvInt("HANDOFF_REDIS_DB", 0)
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: HANDOFF_REDIS_PASSWORD is required when HANDOFF_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
