// Package domain defines the core domain models for the contact service.
//
// Domain models are pure value objects without IO dependencies:
//
//   - SessionState: per-cookie token slots and rate windows
//   - Submission: one contact-form post
//   - Rejection: typed pipeline failure with stage, code and status
//   - AuditEvent: structured audit record
//   - Mail: outbound message handed to a transport
//   - Errors: coded domain errors
package domain
