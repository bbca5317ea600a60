// Package token provides random token generation and constant-time
// comparison for form tokens.
//
// Form tokens are 32 random bytes from crypto/rand, hex encoded
// (64 characters) so they survive form posts and JSON untouched.
// Short identifiers such as request IDs use base64 RawURL encoding.
package token
