package adaptive

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNew(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.Type(); got != CipherAESGCM && got != CipherChaCha20 {
		t.Errorf("New() type = %q, want aes-gcm or chacha20-poly1305", got)
	}
}

func TestNewWithType(t *testing.T) {
	tests := []struct {
		typ       CipherType
		nonceSize int
		wantErr   bool
	}{
		{CipherAESGCM, 12, false},
		{CipherChaCha20, 12, false},
		{"des", 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			c, err := NewWithType(testKey(), tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWithType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCipher) {
					t.Errorf("NewWithType() error = %v, want ErrUnknownCipher", err)
				}
				return
			}
			if c.Type() != tt.typ {
				t.Errorf("Type() = %q, want %q", c.Type(), tt.typ)
			}
			if c.NonceSize() != tt.nonceSize {
				t.Errorf("NonceSize() = %d, want %d", c.NonceSize(), tt.nonceSize)
			}
			if c.Overhead() != 16 {
				t.Errorf("Overhead() = %d, want 16", c.Overhead())
			}
		})
	}
}

func TestNewWithType_KeySize(t *testing.T) {
	for _, n := range []int{0, 16, 24, 31, 33} {
		if _, err := NewWithType(make([]byte, n), CipherAESGCM); !errors.Is(err, ErrKeySize) {
			t.Errorf("NewWithType(%d-byte key) error = %v, want ErrKeySize", n, err)
		}
	}
}

func TestEncryptDecrypt(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(testKey(), typ)
			if err != nil {
				t.Fatal(err)
			}
			plaintext := []byte(`{"csrf_token":"abc"}`)
			ad := []byte("sess:1")

			sealed, err := c.Encrypt(plaintext, ad)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(sealed) != len(plaintext)+c.NonceSize()+c.Overhead() {
				t.Errorf("len(sealed) = %d, want %d", len(sealed), len(plaintext)+c.NonceSize()+c.Overhead())
			}
			if bytes.Contains(sealed, plaintext) {
				t.Error("sealed output contains the plaintext")
			}

			again, _ := c.Encrypt(plaintext, ad)
			if bytes.Equal(sealed, again) {
				t.Error("two encryptions produced the same output")
			}

			got, err := c.Decrypt(sealed, ad)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Errorf("Decrypt() = %q, want %q", got, plaintext)
			}

			if _, err := c.Decrypt(sealed, []byte("sess:2")); err == nil {
				t.Error("Decrypt() with other additional data should fail")
			}

			tampered := append([]byte(nil), sealed...)
			tampered[len(tampered)-1] ^= 0xff
			if _, err := c.Decrypt(tampered, ad); err == nil {
				t.Error("Decrypt() of tampered data should fail")
			}

			if _, err := c.Decrypt(sealed[:c.NonceSize()], ad); !errors.Is(err, ErrCiphertextShort) {
				t.Errorf("Decrypt(short) error = %v, want ErrCiphertextShort", err)
			}
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	c1, _ := NewWithType(testKey(), CipherAESGCM)
	c2, _ := NewWithType(make([]byte, KeySize), CipherAESGCM)

	sealed, err := c1.Encrypt([]byte("secret"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Decrypt(sealed, nil); err == nil {
		t.Error("Decrypt() with another key should fail")
	}
}

func TestSealOpen_NilCipher(t *testing.T) {
	data := []byte("plain")

	sealed, err := Seal(nil, data, nil)
	if err != nil || !bytes.Equal(sealed, data) {
		t.Errorf("Seal(nil) = %q, %v, want passthrough", sealed, err)
	}
	opened, err := Open(nil, data, nil)
	if err != nil || !bytes.Equal(opened, data) {
		t.Errorf("Open(nil) = %q, %v, want passthrough", opened, err)
	}
}

func TestSealOpen_Cipher(t *testing.T) {
	c, _ := New(testKey())

	sealed, err := Seal(c, []byte("plain"), []byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	opened, err := Open(c, sealed, []byte("k"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(opened) != "plain" {
		t.Errorf("Open() = %q, want %q", opened, "plain")
	}
}

func TestParseKey(t *testing.T) {
	key := testKey()

	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"hex", hex.EncodeToString(key), nil},
		{"hex padded", " " + hex.EncodeToString(key) + "\n", nil},
		{"base64", base64.StdEncoding.EncodeToString(key), nil},
		{"base64 raw url", base64.RawURLEncoding.EncodeToString(key), nil},
		{"short base64", base64.StdEncoding.EncodeToString(key[:16]), ErrKeySize},
		{"garbage", "not a key!", ErrKeyEncoding},
		{"empty", "", ErrKeySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseKey() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey() error = %v", err)
			}
			if !bytes.Equal(got, key) {
				t.Errorf("ParseKey() = %x, want %x", got, key)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    CipherType
		wantErr bool
	}{
		{"", CipherAuto, false},
		{"AES-GCM", CipherAESGCM, false},
		{" chacha20-poly1305 ", CipherChaCha20, false},
		{"rot13", "", true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
