package security

import (
	"InvoiceFinancing/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

var ErrCiphertextTooShort = errors.New("ciphertext is too short")

// gcmSealer implements ports.PayloadSealer using AES-GCM.
type gcmSealer struct {
	gcm cipher.AEAD
	log zerolog.Logger
}

var _ ports.PayloadSealer = (*gcmSealer)(nil)

// NewAESSealer creates a sealer for a 16 or 32 byte key.
func NewAESSealer(encryptionKey []byte, baseLogger *zerolog.Logger) (ports.PayloadSealer, error) {
	if len(encryptionKey) != 16 && len(encryptionKey) != 32 {
		return nil, errors.New("encryptionKey must be 16 or 32 bytes")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("could not create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	log := baseLogger.With().Str("component", "payload_sealer").Logger()
	log.Info().Int("key_bits", len(encryptionKey)*8).Msg("Payload sealer initialized")

	return &gcmSealer{gcm: gcm, log: log}, nil
}

// NewAESSealerFromHex decodes a hex key as found in ENCRYPTION_KEY.
func NewAESSealerFromHex(hexKey string, baseLogger *zerolog.Logger) (ports.PayloadSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	return NewAESSealer(key, baseLogger)
}

// Seal prefixes the ciphertext with a fresh random nonce.
func (s *gcmSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		s.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *gcmSealer) Open(ciphertext []byte) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to open sealed payload (tampered or wrong key?)")
		return nil, fmt.Errorf("could not decrypt: %w", err)
	}
	return plaintext, nil
}
