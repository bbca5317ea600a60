// Package httpserver provides the HTTP/HTTPS server of the contact service.
//
// It uses the standard library net/http mux and a middleware chain:
// panic recovery, request IDs, client IP resolution, browser security
// headers, Prometheus metrics, access logging, same-origin CORS, a per-IP
// token bucket (golang.org/x/time/rate) and the IP allow/deny policy.
// Handlers live in the handler subpackage.
package httpserver
