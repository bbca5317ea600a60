// Package command defines the contact-cli commands using urfave/cli/v2.
//
//   - root.go: App, global flags, output helpers
//   - config.go: config check and config default
//   - logs.go: monthly log listing, pruning and audit queries
//   - token.go: token fetch
//   - submit.go: end-to-end contact submission
//   - health.go: liveness and readiness probes
//
// Commands parse their flags, call the server or the local files, and
// hand the result to an output.Formatter.
package command
