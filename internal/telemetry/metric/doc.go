// Package metric provides Prometheus metrics for the contact service.
//
// Each Registry owns a private prometheus.Registry with the Go and process
// collectors plus the sept3_* application metrics. The server uses Global();
// tests build their own with NewRegistry so counts start at zero.
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric
