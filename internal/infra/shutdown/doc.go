// Package shutdown coordinates graceful termination of contact-server.
//
// A Handler waits for SIGINT or SIGTERM (or an explicit Trigger), then
// runs the registered hooks in reverse registration order under one
// deadline. SIGHUP runs the reload callbacks without stopping.
package shutdown
