package config

import "time"

// ContactConfig is the root configuration for contact-server.
type ContactConfig struct {
	Server     ServerSection     `koanf:"server"`
	Storage    StorageSection    `koanf:"storage"`
	CSRF       CSRFSection       `koanf:"csrf"`
	RateLimit  RateLimitSection  `koanf:"rate_limit"`
	Spam       SpamSection       `koanf:"spam"`
	Recaptcha  RecaptchaSection  `koanf:"recaptcha"`
	Validation ValidationSection `koanf:"validation"`
	Mail       MailSection       `koanf:"mail"`
	Security   SecuritySection   `koanf:"security"`
	Log        LogSection        `koanf:"log"`
}

// ServerSection configures the HTTP endpoint and session cookie.
type ServerSection struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Session SessionConfig `koanf:"session"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// GlobalRPS and GlobalBurst size the per-IP flood limiter.
	// Zero RPS disables it.
	GlobalRPS   float64 `koanf:"global_rps"`
	GlobalBurst int     `koanf:"global_burst"`

	// TrustProxyHeaders reads the client IP from Client-IP,
	// X-Forwarded-For and X-Real-IP.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// CORSOrigins are accepted in addition to the request's own host.
	CORSOrigins []string `koanf:"cors_origins"`
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string        `koanf:"cookie_name"`
	IdleTTL    time.Duration `koanf:"idle_ttl"`
}

// StorageSection selects the session store backend.
type StorageSection struct {
	Backend string       `koanf:"backend"`
	Badger  BadgerConfig `koanf:"badger"`
	Redis   RedisConfig  `koanf:"redis"`

	// EncryptionKey seals badger and redis records when set: 32 bytes as
	// hex or base64. Cipher is "aes-gcm", "chacha20-poly1305" or empty
	// for the CPU's preference.
	EncryptionKey string `koanf:"encryption_key"`
	Cipher        string `koanf:"cipher"`
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	Dir        string `koanf:"dir"`
	GCInterval string `koanf:"gc_interval"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// RedisConfig configures the shared store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// CSRFSection configures session tokens.
type CSRFSection struct {
	TokenLifetime time.Duration `koanf:"token_lifetime"`
	DoubleSubmit  bool          `koanf:"double_submit"`
}

// RateLimitSection configures the sliding-window limiter.
type RateLimitSection struct {
	Count      int           `koanf:"count"`
	Period     time.Duration `koanf:"period"`
	StrictMode bool          `koanf:"strict_mode"`

	// EmailKey keys the digest under which email windows are stored.
	EmailKey string `koanf:"email_key"`
}

// SpamSection configures the cheap bot traps and the content filter.
type SpamSection struct {
	Honeypot          bool          `koanf:"honeypot"`
	TimestampCheck    bool          `koanf:"timestamp_check"`
	MinFillTime       time.Duration `koanf:"min_fill_time"`
	MaxFillTime       time.Duration `koanf:"max_fill_time"`
	ProhibitedWords   []string      `koanf:"prohibited_words"`
	DisposableDomains []string      `koanf:"disposable_domains"`
}

// RecaptchaSection configures bot-score verification. An empty secret
// disables the check.
type RecaptchaSection struct {
	SecretKey string        `koanf:"secret_key"`
	Threshold float64       `koanf:"threshold"`
	VerifyURL string        `koanf:"verify_url"`
	Timeout   time.Duration `koanf:"timeout"`
	FailOpen  bool          `koanf:"fail_open"`
}

// ValidationSection configures field limits.
type ValidationSection struct {
	MaxNameLength    int           `koanf:"max_name_length"`
	MaxCompanyLength int           `koanf:"max_company_length"`
	MaxContentLength int           `koanf:"max_content_length"`
	MinContentLength int           `koanf:"min_content_length"`
	MaxEmailLength   int           `koanf:"max_email_length"`
	MaxPhoneLength   int           `koanf:"max_phone_length"`
	MXCheck          bool          `koanf:"mx_check"`
	DNSServer        string        `koanf:"dns_server"`
	DNSTimeout       time.Duration `koanf:"dns_timeout"`
}

// MailSection configures outbound mail.
type MailSection struct {
	Admin     string `koanf:"admin"`
	From      string `koanf:"from"`
	FromName  string `koanf:"from_name"`
	Transport string `koanf:"transport"`

	SMTP SMTPConfig `koanf:"smtp"`

	ErrorNotification   bool   `koanf:"error_notification"`
	ErrorNotificationTo string `koanf:"error_notification_to"`
}

// SMTPConfig configures the SMTP relay and its optional fallback.
type SMTPConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	FallbackHost string        `koanf:"fallback_host"`
	FallbackPort int           `koanf:"fallback_port"`
	Timeout      time.Duration `koanf:"timeout"`

	// CAFile adds a private CA to the roots used for STARTTLS.
	CAFile string `koanf:"ca_file"`
}

// SecuritySection configures IP restriction.
type SecuritySection struct {
	IPRestriction bool     `koanf:"ip_restriction"`
	IPAllowlist   []string `koanf:"ip_allowlist"`
	IPDenylist    []string `koanf:"ip_denylist"`

	// AllowedCountries is accepted for compatibility; no GeoIP lookup is
	// performed.
	AllowedCountries []string `koanf:"allowed_countries"`
}

// LogSection configures logging and the file logs.
type LogSection struct {
	Level         string `koanf:"level"`
	Format        string `koanf:"format"`
	Dir           string `koanf:"dir"`
	AuditEnabled  bool   `koanf:"audit_enabled"`
	UserAgent     bool   `koanf:"user_agent"`
	RetentionDays int    `koanf:"retention_days"`
}
