package config

import (
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"

	"github.com/testwebinoue-debug/sept3/pkg/crypto/adaptive"
)

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ContactConfig) error {
	var errs []error
	errs = append(errs, verifyServer(&cfg.Server)...)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifyLimits(cfg)...)
	errs = append(errs, verifyMail(&cfg.Mail)...)
	errs = append(errs, verifySecurity(&cfg.Security)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	return errors.Join(errs...)
}

func verifyServer(s *ServerSection) []error {
	var errs []error
	if s.HTTP.Addr == "" {
		errs = append(errs, errors.New("server.http.addr is required"))
	} else if _, _, err := net.SplitHostPort(s.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr: %w", err))
	}
	if (s.HTTP.TLSCertFile == "") != (s.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	if s.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.http.max_body_bytes must be positive"))
	}
	if s.HTTP.GlobalRPS < 0 {
		errs = append(errs, errors.New("server.http.global_rps must not be negative"))
	}
	if s.HTTP.GlobalRPS > 0 && s.HTTP.GlobalBurst < 1 {
		errs = append(errs, errors.New("server.http.global_burst must be at least 1"))
	}
	if s.Session.CookieName == "" {
		errs = append(errs, errors.New("server.session.cookie_name is required"))
	}
	if s.Session.IdleTTL <= 0 {
		errs = append(errs, errors.New("server.session.idle_ttl must be positive"))
	}
	return errs
}

func verifyStorage(s *StorageSection) []error {
	switch s.Backend {
	case "memory":
	case "badger":
		if s.Badger.Dir == "" {
			return []error{errors.New("storage.badger.dir is required for the badger backend")}
		}
	case "redis":
		if s.Redis.Addr == "" {
			return []error{errors.New("storage.redis.addr is required for the redis backend")}
		}
	default:
		return []error{fmt.Errorf("storage.backend: unknown backend %q", s.Backend)}
	}
	if _, err := s.SealCipher(); err != nil {
		return []error{fmt.Errorf("storage: %w", err)}
	}
	return nil
}

// SealCipher builds the at-rest cipher, or returns nil when no key is set.
func (s *StorageSection) SealCipher() (adaptive.Cipher, error) {
	typ, err := adaptive.ParseType(s.Cipher)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := adaptive.ParseKey(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key: %w", err)
	}
	return adaptive.NewWithType(key, typ)
}

func verifyLimits(cfg *ContactConfig) []error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if cfg.CSRF.TokenLifetime <= 0 {
		errs = append(errs, errors.New("csrf.token_lifetime must be positive"))
	}
	positive("rate_limit.count", cfg.RateLimit.Count)
	if cfg.RateLimit.Period <= 0 {
		errs = append(errs, errors.New("rate_limit.period must be positive"))
	}

	if cfg.Spam.TimestampCheck {
		if cfg.Spam.MinFillTime < 0 {
			errs = append(errs, errors.New("spam.min_fill_time must not be negative"))
		}
		if cfg.Spam.MinFillTime > cfg.Spam.MaxFillTime {
			errs = append(errs, errors.New("spam.min_fill_time must not exceed spam.max_fill_time"))
		}
	}

	if t := cfg.Recaptcha.Threshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("recaptcha.threshold %v outside [0,1]", t))
	}

	v := cfg.Validation
	positive("validation.max_name_length", v.MaxNameLength)
	positive("validation.max_company_length", v.MaxCompanyLength)
	positive("validation.max_content_length", v.MaxContentLength)
	positive("validation.max_email_length", v.MaxEmailLength)
	positive("validation.max_phone_length", v.MaxPhoneLength)
	if v.MinContentLength < 0 || v.MinContentLength > v.MaxContentLength {
		errs = append(errs, errors.New("validation.min_content_length must be within [0, max_content_length]"))
	}
	return errs
}

func verifyMail(m *MailSection) []error {
	var errs []error
	address := func(name, v string, required bool) {
		if v == "" {
			if required {
				errs = append(errs, fmt.Errorf("%s is required", name))
			}
			return
		}
		if _, err := mail.ParseAddress(v); err != nil || strings.ContainsAny(v, "<>\r\n") {
			errs = append(errs, fmt.Errorf("%s: invalid address %q", name, v))
		}
	}

	address("mail.admin", m.Admin, true)
	address("mail.from", m.From, true)
	address("mail.error_notification_to", m.ErrorNotificationTo, false)

	switch m.Transport {
	case "smtp":
		if m.SMTP.Host == "" {
			errs = append(errs, errors.New("mail.smtp.host is required for the smtp transport"))
		}
		if m.SMTP.Port < 0 || m.SMTP.Port > 65535 || m.SMTP.FallbackPort < 0 || m.SMTP.FallbackPort > 65535 {
			errs = append(errs, errors.New("mail.smtp port out of range"))
		}
	case "log":
	default:
		errs = append(errs, fmt.Errorf("mail.transport: unknown transport %q", m.Transport))
	}
	return errs
}

func verifySecurity(s *SecuritySection) []error {
	var errs []error
	for _, list := range []struct {
		name    string
		entries []string
	}{
		{"security.ip_allowlist", s.IPAllowlist},
		{"security.ip_denylist", s.IPDenylist},
	} {
		for _, e := range list.entries {
			if !validIPOrCIDR(e) {
				errs = append(errs, fmt.Errorf("%s: invalid IP or CIDR %q", list.name, e))
			}
		}
	}
	return errs
}

func verifyLog(l *LogSection) []error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", l.Level))
	}
	switch l.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", l.Format))
	}
	if l.Dir == "" {
		errs = append(errs, errors.New("log.dir is required"))
	}
	if l.RetentionDays < 0 {
		errs = append(errs, errors.New("log.retention_days must not be negative"))
	}
	return errs
}

func validIPOrCIDR(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}
