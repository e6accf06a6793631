package ports

// PayloadSealer encrypts and decrypts sensitive data stored alongside
// committed change sets.
type PayloadSealer interface {
	// Seal takes a plaintext and returns a secure, encrypted ciphertext.
	Seal(plaintext []byte) (ciphertext []byte, err error)

	// Open takes a ciphertext and returns the original plaintext.
	Open(ciphertext []byte) (plaintext []byte, err error)
}
