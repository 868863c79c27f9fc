package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	// Source
	SourceAPIToken string        // bearer token for the bookmarking service
	SourceAPIURL   string        // ex: "https://api.raindrop.io/rest/v1"
	HTTPTimeout    time.Duration // per-request timeout for the source API (default: 15s)
	PollInterval   time.Duration // time between two cycles (default: 10s)

	// Stream sink (Discord). Empty token => sink disabled.
	StreamBotToken  string
	StreamChannelID int64

	// Webhook sink (Slack). Empty token => sink disabled.
	WebhookToken     string
	WebhookChannelID string
	WebhookAPIURL    string // optional override of the Slack Web API base (tests, proxies)

	// Delivery
	NotifyTimeout    time.Duration // per-sink delivery timeout (default: 15s)
	NotifyRatePerSec float64       // token bucket refill per sink
	NotifyBurst      int           // token bucket capacity per sink
	BreakerFailures  int           // consecutive failures before a sink's breaker opens
	BreakerCooldown  time.Duration // how long an open breaker stays open

	// State
	StateBackend string // "file" | "redis"
	StateFile    string // path of the last-seen file (file backend)
	StateKey     string // redis key (redis backend)

	// Redis (only used when StateBackend == "redis")
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Ops server. Empty ListenPort => disabled.
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // grace period for the in-flight cycle (default: 10s)
	AllowedCIDRS    []string      // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy      bool          // true => trust X-Forwarded-For headers

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ConfigFile string // optional YAML overlay, env always wins
}

// StreamEnabled reports whether the Discord sink is configured.
func (c *Config) StreamEnabled() bool { return c.StreamBotToken != "" }

// WebhookEnabled reports whether the Slack sink is configured.
func (c *Config) WebhookEnabled() bool { return c.WebhookToken != "" }

// Load reads the configuration from the environment, overlaid on the
// optional CONFIG_FILE. It panics on missing or invalid required values.
func Load() *Config {
	src := newSource(os.Getenv("CONFIG_FILE"))
	cfg := load(src)

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

func load(src *source) *Config {
	cfg := &Config{
		// Source
		SourceAPIToken: src.requireEnv("SOURCE_API_TOKEN", "RAINDROP_API_TOKEN"),
		SourceAPIURL:   strings.TrimRight(src.getenv("https://api.raindrop.io/rest/v1", "SOURCE_API_URL"), "/"),
		HTTPTimeout:    src.mustDuration(15*time.Second, "HTTP_TIMEOUT"),
		PollInterval:   time.Duration(src.getenvInt(10, "POLL_INTERVAL_SECONDS")) * time.Second,

		// Sinks
		StreamBotToken:   src.getenv("", "STREAM_BOT_TOKEN", "DISCORD_TOKEN"),
		WebhookToken:     src.getenv("", "WEBHOOK_TOKEN", "SLACK_TOKEN"),
		WebhookChannelID: src.getenv("", "WEBHOOK_CHANNEL_ID", "SLACK_CHANNEL_ID"),
		WebhookAPIURL:    src.getenv("", "WEBHOOK_API_URL"),

		// Delivery
		NotifyTimeout:    src.mustDuration(15*time.Second, "NOTIFY_TIMEOUT"),
		NotifyRatePerSec: src.getenvFloat(1, "NOTIFY_RATE_PER_SEC"),
		NotifyBurst:      src.getenvInt(3, "NOTIFY_BURST"),
		BreakerFailures:  src.getenvInt(5, "BREAKER_FAILURES"),
		BreakerCooldown:  src.mustDuration(time.Minute, "BREAKER_COOLDOWN"),

		// State
		StateBackend: strings.ToLower(src.getenv(BackendFile, "STATE_BACKEND")),
		StateFile:    src.getenv("last_bookmark_id.txt", "STATE_FILE"),
		StateKey:     src.getenv("dropwatch:state:last_id", "STATE_KEY"),

		// Redis
		RedisAddr:           src.getenv("localhost:6379", "REDIS_ADDR"),
		RedisUser:           src.getenv("", "REDIS_USERNAME"),
		RedisPassword:       src.getenv("", "REDIS_PASSWORD"),
		RedisDB:             src.getenvInt(0, "REDIS_DB"),
		RedisDT:             src.mustDuration(5*time.Second, "REDIS_DIAL_TIMEOUT"),
		RedisRT:             src.mustDuration(3*time.Second, "REDIS_READ_TIMEOUT"),
		RedisWT:             src.mustDuration(3*time.Second, "REDIS_WRITE_TIMEOUT"),
		RedisMaxWait:        src.mustDuration(10*time.Second, "REDIS_MAX_WAIT"),
		RedisPingTimeout:    src.mustDuration(5*time.Second, "REDIS_PING_TIMEOUT"),
		RedisPoolSize:       src.getenvInt(4, "REDIS_POOL_SIZE"),
		RedisConnectTimeout: src.mustDuration(30*time.Second, "REDIS_CONNECT_TIMEOUT"),
		RedisRetryInterval:  src.mustDuration(2*time.Second, "REDIS_RETRY_INTERVAL"),
		RedisWarnThreshold:  src.getenvInt(3, "REDIS_WARN_THRESHOLD"),

		// Ops server
		ListenPort:      src.getenvAllowEmpty(":8080", "LISTEN_PORT"),
		ShutdownTimeout: src.mustDuration(10*time.Second, "SHUTDOWN_TIMEOUT"),
		AllowedCIDRS:    parseAllowedIPs(src.getenv("", "ALLOWED_CIDRS")),
		TrustProxy:      src.mustBool(false, "TRUST_PROXY"),

		LogLevel:  src.getenv("info", "LOG_LEVEL"),
		PrettyLog: src.mustBool(false, "PRETTY_LOG"),

		ConfigFile: src.path,
	}

	if cfg.StreamEnabled() {
		cfg.StreamChannelID = src.requireEnvInt64("STREAM_CHANNEL_ID", "DISCORD_CHANNEL_ID")
	}
	if cfg.WebhookEnabled() && cfg.WebhookChannelID == "" {
		panic("❌ FATAL: WEBHOOK_CHANNEL_ID is required when WEBHOOK_TOKEN is set")
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	return cfg
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be > 0, got %v", c.PollInterval)
	}
	if c.StateBackend != BackendFile && c.StateBackend != BackendRedis {
		return fmt.Errorf("STATE_BACKEND must be %q or %q, got %q", BackendFile, BackendRedis, c.StateBackend)
	}
	if c.StateBackend == BackendFile && c.StateFile == "" {
		return fmt.Errorf("STATE_FILE must not be empty")
	}
	if c.NotifyRatePerSec <= 0 || c.NotifyBurst < 1 {
		return fmt.Errorf("NOTIFY_RATE_PER_SEC and NOTIFY_BURST must be positive")
	}
	if c.BreakerFailures < 1 {
		return fmt.Errorf("BREAKER_FAILURES must be >= 1, got %d", c.BreakerFailures)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	cp.SourceAPIToken = redact(cp.SourceAPIToken)
	cp.StreamBotToken = redact(cp.StreamBotToken)
	cp.WebhookToken = redact(cp.WebhookToken)
	cp.RedisPassword = redact(cp.RedisPassword)
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***REDACTED***"
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

// parseInt64 accepts plain integers; Discord snowflakes exceed int32.
func parseInt64(v string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}
