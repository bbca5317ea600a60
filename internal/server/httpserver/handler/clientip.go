package handler

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// UnknownClientIP is reported when no candidate parses as an IP.
const UnknownClientIP = "0.0.0.0"

type contextKey string

const clientIPKey contextKey = "client_ip"

// ResolveClientIP returns the client address. With trustHeaders the
// Client-IP, first X-Forwarded-For and X-Real-IP headers are consulted
// before RemoteAddr; the first candidate present decides. A value that does
// not parse as an IP yields UnknownClientIP.
func ResolveClientIP(r *http.Request, trustHeaders bool) string {
	candidate := ""
	if trustHeaders {
		switch {
		case r.Header.Get("Client-IP") != "":
			candidate = r.Header.Get("Client-IP")
		case r.Header.Get("X-Forwarded-For") != "":
			candidate, _, _ = strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		case r.Header.Get("X-Real-IP") != "":
			candidate = r.Header.Get("X-Real-IP")
		}
	}
	if candidate == "" {
		candidate = r.RemoteAddr
		if host, _, err := net.SplitHostPort(candidate); err == nil {
			candidate = host
		}
	}

	ip := net.ParseIP(strings.TrimSpace(candidate))
	if ip == nil {
		return UnknownClientIP
	}
	return ip.String()
}

// WithClientIP stores the resolved client IP in the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the client IP stored by WithClientIP, or
// UnknownClientIP.
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return UnknownClientIP
}
