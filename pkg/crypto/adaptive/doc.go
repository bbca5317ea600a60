// Package adaptive seals small records with an AEAD cipher picked for the
// host CPU.
//
// AES-256-GCM is used where the Go runtime has hardware AES (amd64, arm64)
// and ChaCha20-Poly1305 elsewhere. The session stores use it to keep CSRF
// tokens and rate windows unreadable at rest; the session ID is bound as
// additional data so a record cannot be replayed under another key.
//
// Usage:
//
//	key, err := adaptive.ParseKey(os.Getenv("KEY"))
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, []byte(id))
//	plaintext, err := c.Decrypt(sealed, []byte(id))
package adaptive
