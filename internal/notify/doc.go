// Package notify renders and delivers the contact-form mails.
//
// Composer builds the administrator notice, the customer auto-reply and the
// operator error notice. Transports deliver them: SMTPTransport speaks SMTP
// with opportunistic STARTTLS, LogTransport writes to the structured log for
// development setups.
package notify
