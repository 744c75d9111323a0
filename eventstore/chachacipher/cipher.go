// Package chachacipher provides a real eventstore.Cipher implementation based
// on XChaCha20-Poly1305 from golang.org/x/crypto.
//
// The key string handed to the store is not used directly: the 32-byte cipher
// key is derived from it with SHA-256, so any non-empty string works as a key.
// Every encryption draws a fresh random nonce which is prepended to the
// ciphertext, so encrypting the same event twice yields different blobs.
package chachacipher

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrEmptyKey is returned when an empty key string is supplied.
	ErrEmptyKey = errors.New("cipher key must not be empty")

	// ErrCiphertextTooShort is returned when stored bytes are shorter than the nonce prefix.
	ErrCiphertextTooShort = errors.New("ciphertext is shorter than the nonce")
)

// Cipher implements eventstore.Cipher with XChaCha20-Poly1305.
// The zero value is ready to use.
type Cipher struct{}

// New creates a new Cipher.
func New() Cipher {
	return Cipher{}
}

// Encrypt seals the plaintext under the key derived from the key string and
// returns nonce || ciphertext.
func (Cipher) Encrypt(plaintext []byte, key string) ([]byte, error) {
	aead, err := aeadForKey(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, randErr := io.ReadFull(rand.Reader, nonce); randErr != nil {
		return nil, randErr
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens nonce || ciphertext produced by Encrypt. It fails when the
// key does not match the one used for encryption or the data was tampered with.
func (Cipher) Decrypt(ciphertext []byte, key string) ([]byte, error) {
	aead, err := aeadForKey(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	return aead.Open(nil, nonce, sealed, nil)
}

func aeadForKey(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	derived := sha256.Sum256([]byte(key))

	return chacha20poly1305.NewX(derived[:])
}
