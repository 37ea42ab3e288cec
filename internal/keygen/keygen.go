// Package keygen generates object-store credentials from crypto/rand.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	// AccessKeyLen is the length of a generated access key in hex characters.
	AccessKeyLen = 16
	// SecretKeyLen is the length of a generated secret key in hex characters.
	SecretKeyLen = 32
)

// AccessKey returns a new random access key of AccessKeyLen hex characters.
func AccessKey() string {
	return hexString(AccessKeyLen)
}

// SecretKey returns a new random secret key of SecretKeyLen hex characters.
func SecretKey() string {
	return hexString(SecretKeyLen)
}

// hexString returns a random lowercase hex string of the given length.
// Collision probability at these lengths is negligible for key rotation.
func hexString(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic("keygen: error reading random bytes: " + err.Error())
	}

	return hex.EncodeToString(buf)[:length]
}
