// Package dnscheck answers whether an email domain can receive mail.
//
// A domain qualifies when it publishes MX records, or failing that an A
// record. Lookups go straight to the configured nameservers with miekg/dns
// so that a per-query timeout applies.
package dnscheck
