// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	admissiondomain "lexgate/backend/internal/admission/domain"
	"lexgate/backend/internal/ratelimit"
)

// Quota backends accepted by QUOTA_BACKEND.
const (
	QuotaBackendMemory   = "memory"
	QuotaBackendRedis    = "redis"
	QuotaBackendPostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// DatabaseURL is the Postgres DSN shared with the session authority. Empty selects the in-memory authority.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the redis:// URL of the quota store; required when QUOTA_BACKEND=redis.
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) used by tokenctl to sign access tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key used to validate access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the expected iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	RateLimitMaxTokens        int   `mapstructure:"RATE_LIMIT_MAX_TOKENS"`
	RateLimitRefillRate       int   `mapstructure:"RATE_LIMIT_REFILL_RATE"`
	RateLimitRefillIntervalMs int64 `mapstructure:"RATE_LIMIT_REFILL_INTERVAL_MS"`

	// TrialLimitsRaw is the service=limit list, comma separated.
	TrialLimitsRaw string `mapstructure:"TRIAL_LIMITS"`
	// QuotaBackend selects the trial usage store: memory, redis or postgres.
	QuotaBackend string `mapstructure:"QUOTA_BACKEND"`
	// QuotaFailurePolicyRaw is "open" or "closed".
	QuotaFailurePolicyRaw string `mapstructure:"QUOTA_FAILURE_POLICY"`

	// SessionAuthorityTimeoutRaw bounds one enforcement round trip (e.g. "2s").
	SessionAuthorityTimeoutRaw string `mapstructure:"SESSION_AUTHORITY_TIMEOUT"`
	// SessionFailurePolicyRaw is "open" or "closed".
	SessionFailurePolicyRaw string `mapstructure:"SESSION_FAILURE_POLICY"`

	// OTLPEndpoint is the collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	trialLimits    map[string]int
	quotaPolicy    admissiondomain.FailurePolicy
	sessionPolicy  admissiondomain.FailurePolicy
	sessionTimeout time.Duration
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	def := ratelimit.DefaultConfig()
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "lexgate-auth")
	v.SetDefault("JWT_AUDIENCE", "lexgate-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("RATE_LIMIT_MAX_TOKENS", def.MaxTokens)
	v.SetDefault("RATE_LIMIT_REFILL_RATE", def.RefillRate)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL_MS", def.RefillIntervalMs)
	v.SetDefault("TRIAL_LIMITS", "document_generation=3,contract_review=3,legal_research=5")
	v.SetDefault("QUOTA_BACKEND", QuotaBackendMemory)
	v.SetDefault("QUOTA_FAILURE_POLICY", "closed")
	v.SetDefault("SESSION_AUTHORITY_TIMEOUT", "2s")
	v.SetDefault("SESSION_FAILURE_POLICY", "open")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "lexgate-admission")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if err := c.RateLimit().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	limits, err := ParseTrialLimits(c.TrialLimitsRaw)
	if err != nil {
		return fmt.Errorf("config: TRIAL_LIMITS: %w", err)
	}
	c.trialLimits = limits

	c.QuotaBackend = strings.ToLower(strings.TrimSpace(c.QuotaBackend))
	switch c.QuotaBackend {
	case QuotaBackendMemory:
	case QuotaBackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when QUOTA_BACKEND=redis")
		}
	case QuotaBackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when QUOTA_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("config: QUOTA_BACKEND must be memory, redis or postgres, got %q", c.QuotaBackend)
	}

	if c.quotaPolicy, err = admissiondomain.ParseFailurePolicy(c.QuotaFailurePolicyRaw); err != nil {
		return fmt.Errorf("config: QUOTA_FAILURE_POLICY: %w", err)
	}
	if c.sessionPolicy, err = admissiondomain.ParseFailurePolicy(c.SessionFailurePolicyRaw); err != nil {
		return fmt.Errorf("config: SESSION_FAILURE_POLICY: %w", err)
	}

	d, err := time.ParseDuration(c.SessionAuthorityTimeoutRaw)
	if err != nil || d <= 0 {
		return fmt.Errorf("config: SESSION_AUTHORITY_TIMEOUT must be a positive duration, got %q", c.SessionAuthorityTimeoutRaw)
	}
	c.sessionTimeout = d
	return nil
}

// ParseTrialLimits parses "service=limit,service=limit". Every limit must be a positive integer and a
// service may appear once. An empty string yields no trial-gated services.
func ParseTrialLimits(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed entry %q", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("limit for %q must be a positive integer, got %q", name, raw)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate service %q", name)
		}
		out[name] = n
	}
	return out, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RateLimit returns the token bucket policy.
func (c *Config) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		MaxTokens:        c.RateLimitMaxTokens,
		RefillRate:       c.RateLimitRefillRate,
		RefillIntervalMs: c.RateLimitRefillIntervalMs,
	}
}

// TrialLimits returns a copy of the parsed service→limit map.
func (c *Config) TrialLimits() map[string]int {
	out := make(map[string]int, len(c.trialLimits))
	for k, v := range c.trialLimits {
		out[k] = v
	}
	return out
}

// TrialServices returns the trial-gated service names in sorted order.
func (c *Config) TrialServices() []string {
	out := make([]string, 0, len(c.trialLimits))
	for k := range c.trialLimits {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// QuotaFailurePolicy is the policy applied when the quota store is unreachable.
func (c *Config) QuotaFailurePolicy() admissiondomain.FailurePolicy { return c.quotaPolicy }

// SessionFailurePolicy is the policy applied when the session authority is unreachable.
func (c *Config) SessionFailurePolicy() admissiondomain.FailurePolicy { return c.sessionPolicy }

// SessionAuthorityTimeout bounds one session enforcement.
func (c *Config) SessionAuthorityTimeout() time.Duration { return c.sessionTimeout }

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}
