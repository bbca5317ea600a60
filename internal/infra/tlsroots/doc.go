// Package tlsroots loads TLS material for contact-server.
//
// CAPool builds the trust store used when the SMTP relay presents a
// certificate from a private CA. CertReloader serves the HTTPS key pair
// and reloads it when either file changes on disk.
package tlsroots
