// Package security implements symmetric encryption for stored credentials.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const ivSize = aes.BlockSize

// Cipher encrypts secret strings with AES-256-CBC. The key is derived from
// an operator-supplied master key by SHA-256, so the master key may be any
// length. Every Encrypt call draws a fresh random IV; ciphertext and IV must
// be persisted together.
type Cipher struct {
	key              [sha256.Size]byte
	insecureFallback bool
	log              zerolog.Logger
}

// NewCipher derives the encryption key from masterKey. When allowInsecure
// is true the cipher runs in a degraded mode that only base64-encodes
// values. That mode exists for environments where real encryption cannot be
// operated and must be an explicit operator decision, never a default.
func NewCipher(masterKey string, allowInsecure bool, log zerolog.Logger) *Cipher {
	c := &Cipher{
		key:              sha256.Sum256([]byte(masterKey)),
		insecureFallback: allowInsecure,
		log:              log,
	}
	if allowInsecure {
		c.log.Warn().Msg("insecure cipher fallback enabled: stored secrets are only base64-encoded")
	}
	return c
}

// Insecure reports whether the degraded base64 mode is active.
func (c *Cipher) Insecure() bool {
	return c.insecureFallback
}

// Encrypt returns the base64 ciphertext and base64 IV for plaintext. In
// degraded mode the IV is empty, which marks the value for Decrypt.
func (c *Cipher) Encrypt(plaintext string) (ciphertext, iv string, err error) {
	if c.insecureFallback {
		c.log.Warn().Msg("encrypting secret in insecure fallback mode")
		return base64.StdEncoding.EncodeToString([]byte(plaintext)), "", nil
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", "", fmt.Errorf("init cipher: %w", err)
	}

	ivBytes := make([]byte, ivSize)
	if _, err := rand.Read(ivBytes); err != nil {
		return "", "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, ivBytes).CryptBlocks(encrypted, padded)

	return base64.StdEncoding.EncodeToString(encrypted),
		base64.StdEncoding.EncodeToString(ivBytes),
		nil
}

// Decrypt reverses Encrypt. It returns ("", false) for any corrupt or
// undecryptable input so callers can treat "cannot decrypt" as "no
// credential"; it never propagates an error past this boundary.
func (c *Cipher) Decrypt(ciphertext, iv string) (string, bool) {
	if ciphertext == "" {
		return "", false
	}

	// Empty IV marks a value written in the insecure fallback mode.
	if iv == "" {
		decoded, err := base64.StdEncoding.DecodeString(ciphertext)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	}

	encrypted, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}
	ivBytes, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(ivBytes) != ivSize {
		return "", false
	}
	if len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", false
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", false
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, ivBytes).CryptBlocks(decrypted, encrypted)

	plaintext, err := unpad(decrypted)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

// pad applies PKCS#7 padding to the next block boundary. The padding byte
// value equals the pad length (RFC 5652).
func pad(data []byte) []byte {
	padLen := aes.BlockSize - len(data)%aes.BlockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}
