package eventstore

// Cipher is the pluggable transform applied to serialized events before they
// are written to the blob directory and after they are read back.
//
// Implementations must be deterministic only in the round-trip sense:
// Decrypt(Encrypt(p, k), k) == p for every payload p and key k. Decrypting
// with a different key than the one used for encryption should fail.
type Cipher interface {
	Encrypt(plaintext []byte, key string) ([]byte, error)
	Decrypt(ciphertext []byte, key string) ([]byte, error)
}

// IdentityCipher is the default Cipher. It stores events as plain serialized
// text, which keeps the on-disk format identical to the event's wire form.
type IdentityCipher struct{}

// Encrypt returns the plaintext unchanged.
func (IdentityCipher) Encrypt(plaintext []byte, _ string) ([]byte, error) {
	return plaintext, nil
}

// Decrypt returns the ciphertext unchanged.
func (IdentityCipher) Decrypt(ciphertext []byte, _ string) ([]byte, error) {
	return ciphertext, nil
}

// Ensure IdentityCipher implements Cipher.
var _ Cipher = IdentityCipher{}
