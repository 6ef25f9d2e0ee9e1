package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
)

type Config struct {
	ListenPort      string        // ex: ":8374"
	ShutdownTimeout time.Duration // ex: 10s
	RequestTimeout  time.Duration // per-request deadline, bounds emergency fetches from the API

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	PolicyFile  string        // path to the resource policy file (.yaml, .yml or .toml)
	DockerHost  string        // ex: unix:///var/run/docker.sock, tcp://10.0.0.5:2375
	PingTimeout time.Duration // preflight ping before bulk fetches

	// Status cache
	CacheTTL               time.Duration // raw tier TTL
	FormattedTTLMultiplier float64       // formatted TTL = CacheTTL * multiplier
	NotFoundThreshold      int           // consecutive not-found before deactivation
	ConditionalMaxKeys     int
	ConditionalTrimEvery   int
	PendingTimeout         time.Duration
	QueryCooldown          time.Duration // min gap between provider queries per resource
	MaxConcurrentFetches   int
	RetryDelay             time.Duration
	UnknownAsSlow          bool // batch never-seen resources with the slow ones

	// Performance profile
	RetryAttempts     int
	SlowThreshold     time.Duration
	MinTimeout        time.Duration
	MaxTimeout        time.Duration
	DefaultTimeout    time.Duration
	TimeoutMultiplier float64
	HistoryWindow     int

	// Background work
	BackgroundRefresh bool
	RefreshInterval   time.Duration
	GCInterval        time.Duration
	GCThreshold       time.Duration

	// Redis (RedisAddr empty => Redis disabled, memory only)
	RedisAddr             string
	RedisUser             string
	RedisPassword         string
	RedisPasswordRequired bool
	RedisDB               int
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // max wait between retries
	RedisPingTimeout      time.Duration // timeout for each ping attempt
	RedisPoolSize         int
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts    []string // optional, restrict access to specific Host headers
	AllowedCIDRS    []string // optional, restrict access to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy      bool     // true => trust X-Forwarded-For headers
	CORSOrigins     []string // optional, browser origins allowed to call the API
	ActionBurst     int      // per-IP burst on action endpoints
	ActionPerMinute int      // per-IP refill on action endpoints
	ActionTimeout   time.Duration
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("DDC_LISTEN_PORT", ":8374"),
		ShutdownTimeout: mustDuration("DDC_SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  mustDuration("DDC_REQUEST_TIMEOUT", 60*time.Second),

		// Logging
		LogLevel:  getenv("DDC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("DDC_PRETTY_LOG", false),

		// Sources
		PolicyFile:  getenv("DDC_POLICY_FILE", "/app/config/policy.yaml"),
		DockerHost:  getenv("DDC_DOCKER_HOST", "unix:///var/run/docker.sock"),
		PingTimeout: mustDuration("DDC_PING_TIMEOUT", 3*time.Second),

		// Status cache
		CacheTTL:               mustDuration("DDC_CACHE_TTL", 30*time.Second),
		FormattedTTLMultiplier: getenvFloat("DDC_FORMATTED_TTL_MULTIPLIER", 2.5),
		NotFoundThreshold:      getenvInt("DDC_NOT_FOUND_THRESHOLD", 2),
		ConditionalMaxKeys:     getenvInt("DDC_CONDITIONAL_MAX_KEYS", 500),
		ConditionalTrimEvery:   getenvInt("DDC_CONDITIONAL_TRIM_EVERY", 100),
		PendingTimeout:         mustDuration("DDC_PENDING_TIMEOUT", 2*time.Minute),
		QueryCooldown:          mustDuration("DDC_QUERY_COOLDOWN", 2*time.Second),
		MaxConcurrentFetches:   getenvInt("DDC_MAX_CONCURRENT_FETCHES", 3),
		RetryDelay:             mustDuration("DDC_RETRY_DELAY", 500*time.Millisecond),
		UnknownAsSlow:          mustBool("DDC_UNKNOWN_AS_SLOW", false),

		// Performance profile
		RetryAttempts:     getenvInt("DDC_RETRY_ATTEMPTS", 3),
		SlowThreshold:     mustDuration("DDC_SLOW_THRESHOLD", 8*time.Second),
		MinTimeout:        mustDuration("DDC_MIN_TIMEOUT", 2*time.Second),
		MaxTimeout:        mustDuration("DDC_MAX_TIMEOUT", 30*time.Second),
		DefaultTimeout:    mustDuration("DDC_DEFAULT_TIMEOUT", 5*time.Second),
		TimeoutMultiplier: getenvFloat("DDC_TIMEOUT_MULTIPLIER", 2.0),
		HistoryWindow:     getenvInt("DDC_HISTORY_WINDOW", 20),

		// Background work
		BackgroundRefresh: mustBool("DDC_BACKGROUND_REFRESH", true),
		RefreshInterval:   mustDuration("DDC_REFRESH_INTERVAL", 30*time.Second),
		GCInterval:        mustDuration("DDC_GC_INTERVAL", time.Hour),
		GCThreshold:       mustDuration("DDC_GC_THRESHOLD", 24*time.Hour),

		// Redis settings
		RedisAddr:             getenv("DDC_REDIS_ADDR", ""),
		RedisUser:             getenv("DDC_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("DDC_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("DDC_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("DDC_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:    splitAndTrim(getenv("DDC_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    splitAndTrim(getenv("DDC_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("DDC_TRUST_PROXY", false),
		CORSOrigins:     splitAndTrim(getenv("DDC_CORS_ORIGINS", "")),
		ActionBurst:     getenvInt("DDC_ACTION_BURST", 5),
		ActionPerMinute: getenvInt("DDC_ACTION_PER_MINUTE", 10),
		ActionTimeout:   mustDuration("DDC_ACTION_TIMEOUT", 30*time.Second),
	}

	if cfg.RedisPasswordRequired && cfg.RedisAddr != "" && cfg.RedisPassword == "" {
		panic("❌ FATAL: DDC_REDIS_PASSWORD is required when DDC_REDIS_PASSWORD_REQUIRED=true")
	}
	if err := cfg.PerformanceConfig().Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid performance settings: %v", err))
	}
	if cfg.CacheTTL <= 0 || cfg.FormattedTTLMultiplier < 1 {
		panic(fmt.Sprintf("❌ FATAL: DDC_CACHE_TTL must be > 0 and DDC_FORMATTED_TTL_MULTIPLIER >= 1, got %v and %v",
			cfg.CacheTTL, cfg.FormattedTTLMultiplier))
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

// PerformanceConfig projects the profile settings.
func (c *Config) PerformanceConfig() profile.Config {
	return profile.Config{
		MinTimeout:        c.MinTimeout,
		MaxTimeout:        c.MaxTimeout,
		DefaultTimeout:    c.DefaultTimeout,
		SlowThreshold:     c.SlowThreshold,
		HistoryWindow:     c.HistoryWindow,
		RetryAttempts:     c.RetryAttempts,
		TimeoutMultiplier: c.TimeoutMultiplier,
	}
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
