package config

import "strings"

// Sanitize returns a copy of the config with secrets masked.
func Sanitize(cfg *ContactConfig) *ContactConfig {
	sanitized := *cfg

	sanitized.Storage.Redis.Password = maskSecret(sanitized.Storage.Redis.Password)
	sanitized.Storage.EncryptionKey = maskSecret(sanitized.Storage.EncryptionKey)
	sanitized.RateLimit.EmailKey = maskSecret(sanitized.RateLimit.EmailKey)
	sanitized.Recaptcha.SecretKey = maskSecret(sanitized.Recaptcha.SecretKey)
	sanitized.Mail.SMTP.Password = maskSecret(sanitized.Mail.SMTP.Password)

	return &sanitized
}

// maskSecret masks a secret value for safe logging. Empty stays empty.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
