// Package config loads Agency OS process configuration from a YAML file
// with environment variable overrides layered on top.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Redis        RedisConfig        `yaml:"redis"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	RateLimits   RateLimitConfig    `yaml:"rate_limits"`
	Channels     ChannelsConfig     `yaml:"channels"`
	Enrichment   EnrichmentConfig   `yaml:"enrichment"`
	Suppression  SuppressionConfig  `yaml:"suppression"`
	CIS          CISConfig          `yaml:"cis"`
	Reporting    ReportingConfig    `yaml:"reporting"`
	LLM          LLMConfig          `yaml:"llm"`
	Webhooks     WebhooksConfig     `yaml:"webhooks"`
	TestMode     bool               `yaml:"test_mode"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container-runtime detection.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// StoreConfig holds the transactional Postgres store configuration.
type StoreConfig struct {
	DatabaseURL        string `yaml:"database_url"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMin int    `yaml:"conn_max_lifetime_min"`
}

// ConnMaxLifetime returns the configured connection lifetime as a duration.
func (c StoreConfig) ConnMaxLifetime() time.Duration {
	if c.ConnMaxLifetimeMin == 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ConnMaxLifetimeMin) * time.Minute
}

// RedisConfig holds the Redis connection used for rate limiting,
// distributed locks, and the suppression read-through cache.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DispatchConfig holds Dispatch Orchestrator worker pool sizing.
type DispatchConfig struct {
	WorkersPerChannel int `yaml:"workers_per_channel"`
	PollIntervalMS    int `yaml:"poll_interval_ms"`
	LeaseSeconds      int `yaml:"lease_seconds"`
	MaxAttempts       int `yaml:"max_attempts"`
	BackoffBaseSec    int `yaml:"backoff_base_sec"`
	BackoffMaxSec     int `yaml:"backoff_max_sec"`
	SafetyNetHours     int `yaml:"safety_net_hours"`
	SendWindowStartHour int `yaml:"send_window_start_hour"`
}

// PollInterval returns the worker poll interval as a duration.
func (c DispatchConfig) PollInterval() time.Duration {
	if c.PollIntervalMS == 0 {
		return time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Lease returns the touch claim lease visibility timeout.
func (c DispatchConfig) Lease() time.Duration {
	if c.LeaseSeconds == 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LeaseSeconds) * time.Second
}

// RateLimitConfig holds default per-resource daily send caps (spec §4.7).
// The same cap applies to every resource of a channel; the store has no
// per-client or per-resource override table.
type RateLimitConfig struct {
	EmailPerMailbox   int `yaml:"email_per_mailbox"`
	SMSPerNumber      int `yaml:"sms_per_number"`
	LinkedInPerSeat   int `yaml:"linkedin_per_seat"`
	VoicePerNumber    int `yaml:"voice_per_number"`
	MailPerAccount    int `yaml:"mail_per_account"` // 0 = unbounded
}

// DefaultRateLimits returns the spec-documented default caps.
func DefaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		EmailPerMailbox: 50,
		SMSPerNumber:    100,
		LinkedInPerSeat: 17,
		VoicePerNumber:  50,
		MailPerAccount:  0,
	}
}

// ChannelsConfig holds provider credentials for the five channel adapters.
type ChannelsConfig struct {
	SES        SESConfig        `yaml:"ses"`
	SMS        ProviderConfig   `yaml:"sms"`
	LinkedIn   ProviderConfig   `yaml:"linkedin"`
	Voice      ProviderConfig   `yaml:"voice"`
	Mail       ProviderConfig   `yaml:"mail"`
	TestModeTo string           `yaml:"test_mode_to"` // operator address/number all sends redirect to when TestMode is on
}

// SESConfig holds AWS SES v2 credentials for the email channel adapter.
type SESConfig struct {
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
}

// ProviderConfig is a generic API-key/base-URL provider credential block,
// used for the SMS, LinkedIn, voice, and direct-mail channel adapters
// (all out-of-scope third parties behind a narrow send/parse-webhook
// contract per spec.md §9).
type ProviderConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	SigningSecret  string `yaml:"signing_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured provider timeout as a duration.
func (c ProviderConfig) Timeout() time.Duration {
	if c.TimeoutSeconds == 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EnrichmentConfig holds waterfall provider credentials and cache tuning.
type EnrichmentConfig struct {
	CacheTTLDays      int            `yaml:"cache_ttl_days"`
	CacheVersion      string         `yaml:"cache_version"`
	Tier1             ProviderConfig `yaml:"tier1"`
	Tier2             ProviderConfig `yaml:"tier2"`
	Tier3             Tier3Config    `yaml:"tier3"`
	DefaultDailyBudgetAUD float64    `yaml:"default_daily_budget_aud"`
}

// Tier3Config holds the premium contact-reveal provider's OAuth2
// client-credentials configuration (spec.md §4.3 tier 3).
type Tier3Config struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
	BaseURL      string   `yaml:"base_url"`
}

// CacheTTL returns the versioned cache entry lifetime.
func (c EnrichmentConfig) CacheTTL() time.Duration {
	if c.CacheTTLDays == 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// SuppressionConfig holds suppression policy knobs.
type SuppressionConfig struct {
	// PersonalEmailDomains are excluded from domain-level suppression
	// (spec.md §4.2 policy). Seeded with major webmail providers; kept
	// configurable per the spec's open question.
	PersonalEmailDomains []string `yaml:"personal_email_domains"`
	CoolingOffMonths     int      `yaml:"cooling_off_months"`
}

// DefaultPersonalEmailDomains returns the seed list of major webmail
// providers excluded from domain-level suppression.
func DefaultPersonalEmailDomains() []string {
	return []string{
		"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
		"icloud.com", "aol.com", "live.com", "msn.com", "protonmail.com",
		"mail.com", "gmx.com", "yandex.com",
	}
}

// CoolingOff returns the not_interested suppression duration.
func (c SuppressionConfig) CoolingOff() time.Duration {
	months := c.CoolingOffMonths
	if months == 0 {
		months = 12
	}
	return time.Duration(months) * 30 * 24 * time.Hour
}

// CISConfig holds Conversion Intelligence System scheduling and archival.
type CISConfig struct {
	IntervalHours   int    `yaml:"interval_hours"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Region        string `yaml:"s3_region"`
	MinConverting   int    `yaml:"min_converting"`
	MinTotal        int    `yaml:"min_total"`
}

// Interval returns the detector run interval (default weekly).
func (c CISConfig) Interval() time.Duration {
	if c.IntervalHours == 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.IntervalHours) * time.Hour
}

// ReportingConfig holds the Snowflake-backed KPI dashboard mirror.
type ReportingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
}

// LLMConfig holds the Bedrock-backed classifier/summarization adapter.
type LLMConfig struct {
	Region       string `yaml:"region"`
	CheapModel   string `yaml:"cheap_model"`
	PremiumModel string `yaml:"premium_model"`
}

// WebhooksConfig holds inbound signature secrets and outbound retry policy.
type WebhooksConfig struct {
	EmailSigningSecret    string `yaml:"email_signing_secret"`
	SMSSigningSecret      string `yaml:"sms_signing_secret"`
	LinkedInSigningSecret string `yaml:"linkedin_signing_secret"`
	VoiceSigningSecret    string `yaml:"voice_signing_secret"`
	OutboundRetries       int    `yaml:"outbound_retries"`
}

// Retries returns the outbound webhook retry count (default 3 per spec.md §6).
func (c WebhooksConfig) Retries() int {
	if c.OutboundRetries == 0 {
		return 3
	}
	return c.OutboundRetries
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = 25
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = 10
	}
	if cfg.RateLimits == (RateLimitConfig{}) {
		cfg.RateLimits = DefaultRateLimits()
	}
	if len(cfg.Suppression.PersonalEmailDomains) == 0 {
		cfg.Suppression.PersonalEmailDomains = DefaultPersonalEmailDomains()
	}
	if cfg.CIS.MinConverting == 0 {
		cfg.CIS.MinConverting = 5
	}
	if cfg.CIS.MinTotal == 0 {
		cfg.CIS.MinTotal = 20
	}
	if cfg.LLM.CheapModel == "" {
		cfg.LLM.CheapModel = "anthropic.claude-3-haiku-20240307-v1:0"
	}
	if cfg.LLM.PremiumModel == "" {
		cfg.LLM.PremiumModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file first (if present) so secrets can live there
// locally and in real process env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Channels.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Channels.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Channels.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_FROM_NAME"); v != "" {
		cfg.Channels.SES.FromName = v
	}
	if v := os.Getenv("AWS_SES_FROM_ADDRESS"); v != "" {
		cfg.Channels.SES.FromAddress = v
	}
	if cfg.Channels.SES.FromName == "" {
		cfg.Channels.SES.FromName = "Agency OS"
	}
	if v := os.Getenv("SMS_API_KEY"); v != "" {
		cfg.Channels.SMS.APIKey = v
	}
	if v := os.Getenv("LINKEDIN_API_KEY"); v != "" {
		cfg.Channels.LinkedIn.APIKey = v
	}
	if v := os.Getenv("VOICE_API_KEY"); v != "" {
		cfg.Channels.Voice.APIKey = v
	}
	if v := os.Getenv("MAIL_API_KEY"); v != "" {
		cfg.Channels.Mail.APIKey = v
	}
	if v := os.Getenv("ENRICHMENT_TIER3_CLIENT_SECRET"); v != "" {
		cfg.Enrichment.Tier3.ClientSecret = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Reporting.Password = v
	}
	if v := os.Getenv("WEBHOOK_EMAIL_SECRET"); v != "" {
		cfg.Webhooks.EmailSigningSecret = v
	}
	if v := os.Getenv("WEBHOOK_SMS_SECRET"); v != "" {
		cfg.Webhooks.SMSSigningSecret = v
	}
	if v := os.Getenv("WEBHOOK_LINKEDIN_SECRET"); v != "" {
		cfg.Webhooks.LinkedInSigningSecret = v
	}
	if v := os.Getenv("WEBHOOK_VOICE_SECRET"); v != "" {
		cfg.Webhooks.VoiceSigningSecret = v
	}
	if os.Getenv("TEST_MODE") != "" {
		cfg.TestMode = true
	}

	return cfg, nil
}
