// Package cryptox implements the SendVault encryption envelope: a
// self-describing container holding a KDF salt, independent IVs, encrypted
// metadata and the encrypted payload. Everything here is pure computation;
// callers own all I/O.
package cryptox

import (
	"crypto/sha512"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is deliberately high: one offline password guess should
	// cost on the order of seconds.
	KDFIterations = 600_000

	KeySize  = 32
	SaltSize = 32
)

// DeriveKey stretches a password into a 256-bit AES key using
// PBKDF2-HMAC-SHA512. Deterministic: the same password and salt always
// produce the same key, which is what makes decryption possible from the
// salt embedded in the envelope.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, KDFIterations, KeySize, sha512.New)
}
