// Package handler provides the HTTP handlers of the contact service.
//
// Routes:
//
//   - GET  /api/csrf-token: issue a CSRF / double-submit token pair
//   - POST /api/contact: run a submission through the defense pipeline
//   - GET  /health, GET /ready: liveness and readiness
//
// Responses use the flat {success, message} shape the browser client
// expects rather than an envelope.
package handler
