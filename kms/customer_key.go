// Package kms handles server-side encryption with customer-provided keys, the
// scheme object storage exposes through the opc-sse-customer-* headers.
package kms

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// AlgorithmAES256 is the only value accepted in opc-sse-customer-algorithm.
const AlgorithmAES256 = "AES256"

var (
	// ErrInvalidKey is returned for a malformed key or an unsupported algorithm.
	ErrInvalidKey = errors.New("invalid customer-provided encryption key")
	// ErrKeyMismatch is returned when a key does not open the data it is used on.
	ErrKeyMismatch = errors.New("customer-provided encryption key does not match")
)

// CustomerKey is a decoded 256-bit key together with its base64 SHA256 digest,
// which is what gets stored next to the encrypted data.
type CustomerKey struct {
	key    []byte
	SHA256 string
}

// ParseCustomerKey decodes the base64 key header. keySHA256 is optional; when set
// it must be the base64 SHA256 digest of the decoded key.
func ParseCustomerKey(algorithm, key, keySHA256 string) (*CustomerKey, error) {
	if algorithm != AlgorithmAES256 {
		return nil, errors.Wrapf(ErrInvalidKey, "unsupported algorithm %q", algorithm)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, "key is not valid base64")
	}
	if len(raw) != 32 {
		return nil, errors.Wrapf(ErrInvalidKey, "key must be 256 bits, got %d", len(raw)*8)
	}
	sum := sha256.Sum256(raw)
	digest := base64.StdEncoding.EncodeToString(sum[:])
	if keySHA256 != "" && keySHA256 != digest {
		return nil, errors.Wrap(ErrInvalidKey, "key does not match its SHA256 digest")
	}
	return &CustomerKey{key: raw, SHA256: digest}, nil
}

// Seal encrypts plaintext with AES-GCM. The random nonce is prepended to the result.
func (k *CustomerKey) Seal(plaintext []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (k *CustomerKey) Open(sealed []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return nil, errors.Wrap(ErrKeyMismatch, "ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, errors.Wrap(ErrKeyMismatch, err.Error())
	}
	return plaintext, nil
}

func (k *CustomerKey) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, errors.Wrap(err, "create cipher")
	}
	return cipher.NewGCM(block)
}
