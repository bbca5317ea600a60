package notify

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// ErrHeaderInjection is returned for header values containing line breaks.
var ErrHeaderInjection = errors.New("notify: line break in header value")

// Render builds the RFC 5322 message for m. Subject and display name are
// B-encoded when they are not plain ASCII. Line endings become CRLF and
// leading dots are not escaped; the SMTP data writer handles that.
func Render(m *domain.Mail, now time.Time) ([]byte, error) {
	return render(m, now, false)
}

// RenderEncoded is Render with subject and display name always written as
// RFC 2047 encoded words, ASCII included.
func RenderEncoded(m *domain.Mail, now time.Time) ([]byte, error) {
	return render(m, now, true)
}

func render(m *domain.Mail, now time.Time, force bool) ([]byte, error) {
	if err := checkHeaders(m); err != nil {
		return nil, err
	}

	var b strings.Builder
	writeHeader(&b, "From", formatFrom(m.FromName, m.FromAddr, force))
	writeHeader(&b, "To", m.To)
	writeHeader(&b, "Subject", encodeWord(m.Subject, force))
	writeHeader(&b, "Date", now.Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")

	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&b, k, m.Headers[k])
	}

	b.WriteString("\r\n")
	b.WriteString(toCRLF(m.Body))
	return []byte(b.String()), nil
}

func formatFrom(name, addr string, force bool) string {
	if name == "" {
		return addr
	}
	if force {
		return encodeWord(name, true) + " <" + addr + ">"
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

func encodeWord(s string, force bool) string {
	if !force || s == "" {
		return mime.BEncoding.Encode("UTF-8", s)
	}
	if enc := mime.BEncoding.Encode("UTF-8", s); enc != s {
		return enc
	}
	return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
}

func writeHeader(b *strings.Builder, k, v string) {
	b.WriteString(k)
	b.WriteString(": ")
	b.WriteString(v)
	b.WriteString("\r\n")
}

func checkHeaders(m *domain.Mail) error {
	for _, v := range []string{m.To, m.Subject, m.FromName, m.FromAddr} {
		if strings.ContainsAny(v, "\r\n") {
			return ErrHeaderInjection
		}
	}
	for k, v := range m.Headers {
		if strings.ContainsAny(k, "\r\n:") || strings.ContainsAny(v, "\r\n") {
			return ErrHeaderInjection
		}
	}
	return nil
}

func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
