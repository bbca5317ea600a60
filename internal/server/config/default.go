package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr     = "127.0.0.1:8080"
	DefaultMaxBodyBytes = 1 << 20
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultGlobalRPS    = 20
	DefaultGlobalBurst  = 40

	DefaultCookieName = "SEPT3SESSID"
	DefaultIdleTTL    = 24 * time.Hour

	DefaultStorageBackend = "memory"
	DefaultBadgerDir      = "./data/sessions"
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultRedisPrefix    = "sept3:sess"

	DefaultTokenLifetime = time.Hour

	DefaultRateLimitCount  = 3
	DefaultRateLimitPeriod = time.Hour

	DefaultMinFillTime = 3 * time.Second
	DefaultMaxFillTime = time.Hour

	DefaultRecaptchaThreshold = 0.5
	DefaultRecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	DefaultRecaptchaTimeout   = 10 * time.Second

	DefaultDNSTimeout = 5 * time.Second

	DefaultAdminMail = "design@sept3.co.jp"
	DefaultFromMail  = "noreply@sept3.co.jp"
	DefaultFromName  = "sept.3"
	DefaultSMTPPort  = 25
	DefaultSMTPTime  = 30 * time.Second

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogDir        = "./logs"
	DefaultRetentionDays = 90
)

// DefaultProhibitedWords is the built-in content filter list.
var DefaultProhibitedWords = []string{
	"<script", "</script>", "javascript:", "onclick", "onerror",
	"<iframe", "</iframe>", "eval(", "base64_decode", "shell_exec",
	"system(", "exec(", "passthru(", "popen(", "<embed", "<object",
}

// DefaultDisposableDomains is the built-in disposable mail domain list.
var DefaultDisposableDomains = []string{
	"10minutemail.com", "guerrillamail.com", "mailinator.com",
	"tempmail.com", "throwaway.email", "temp-mail.org",
	"yopmail.com", "sharklasers.com", "guerrillamail.info",
}

// Default returns the default contact configuration.
func Default() *ContactConfig {
	return &ContactConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:              DefaultHTTPAddr,
				MaxBodyBytes:      DefaultMaxBodyBytes,
				ReadTimeout:       DefaultReadTimeout,
				WriteTimeout:      DefaultWriteTimeout,
				GlobalRPS:         DefaultGlobalRPS,
				GlobalBurst:       DefaultGlobalBurst,
				TrustProxyHeaders: true,
			},
			Session: SessionConfig{
				CookieName: DefaultCookieName,
				IdleTTL:    DefaultIdleTTL,
			},
		},
		Storage: StorageSection{
			Backend: DefaultStorageBackend,
			Badger: BadgerConfig{
				Dir:        DefaultBadgerDir,
				GCInterval: "10m",
			},
			Redis: RedisConfig{
				Addr:   DefaultRedisAddr,
				Prefix: DefaultRedisPrefix,
			},
		},
		CSRF: CSRFSection{
			TokenLifetime: DefaultTokenLifetime,
			DoubleSubmit:  true,
		},
		RateLimit: RateLimitSection{
			Count:      DefaultRateLimitCount,
			Period:     DefaultRateLimitPeriod,
			StrictMode: true,
		},
		Spam: SpamSection{
			Honeypot:          true,
			TimestampCheck:    true,
			MinFillTime:       DefaultMinFillTime,
			MaxFillTime:       DefaultMaxFillTime,
			ProhibitedWords:   append([]string(nil), DefaultProhibitedWords...),
			DisposableDomains: append([]string(nil), DefaultDisposableDomains...),
		},
		Recaptcha: RecaptchaSection{
			Threshold: DefaultRecaptchaThreshold,
			VerifyURL: DefaultRecaptchaVerifyURL,
			Timeout:   DefaultRecaptchaTimeout,
			FailOpen:  true,
		},
		Validation: ValidationSection{
			MaxNameLength:    50,
			MaxCompanyLength: 100,
			MaxContentLength: 5000,
			MinContentLength: 10,
			MaxEmailLength:   254,
			MaxPhoneLength:   15,
			MXCheck:          true,
			DNSTimeout:       DefaultDNSTimeout,
		},
		Mail: MailSection{
			Admin:     DefaultAdminMail,
			From:      DefaultFromMail,
			FromName:  DefaultFromName,
			Transport: "smtp",
			SMTP: SMTPConfig{
				Host:    "localhost",
				Port:    DefaultSMTPPort,
				Timeout: DefaultSMTPTime,
			},
		},
		Security: SecuritySection{
			AllowedCountries: []string{"JP"},
		},
		Log: LogSection{
			Level:         DefaultLogLevel,
			Format:        DefaultLogFormat,
			Dir:           DefaultLogDir,
			AuditEnabled:  true,
			UserAgent:     true,
			RetentionDays: DefaultRetentionDays,
		},
	}
}
