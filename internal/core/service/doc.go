// Package service implements the submission-defense pipeline.
//
// Services hold no global state. Storage, mail transports, log sinks,
// bot-score verification and DNS lookups are injected through the
// interfaces declared here, so every stage can be tested with fakes.
//
// This package contains:
//
//   - TokenIssuer: CSRF and double-submit token lifecycle
//   - RateLimiter: sliding-window admission per client and per email
//   - Validator: field and content checks for a Submission
//   - RecaptchaVerifier: bot-score verification
//   - Dispatcher: admin notification, auto-reply and error notice
//   - Pipeline: the ordered check sequence for one request
package service
