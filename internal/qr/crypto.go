package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// ErrCorruptedToken marks any structural or cryptographic failure while
// decoding a wire token. Callers fold it into a validation result rather than
// surfacing it.
var ErrCorruptedToken = errors.New("corrupted token")

const (
	keyDerivationSalt       = "checkin-qr-salt"
	keyDerivationIterations = 10000
	ivSize                  = aes.BlockSize
)

// Cipher encrypts and decrypts token payloads with AES-256-CBC. The key is
// derived once at construction from the configured secret; tests inject their
// own secrets, there is no process-global key.
type Cipher struct {
	key []byte
}

// NewCipher derives a 256-bit key from the secret via PBKDF2 with a fixed salt.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("qr secret must not be empty")
	}
	key := pbkdf2.Key([]byte(secret), []byte(keyDerivationSalt), keyDerivationIterations, 32, sha256.New)
	return &Cipher{key: key}, nil
}

// Encrypt produces the opaque wire token: base64url of hex(iv) ":" hex(ct).
// A fresh random IV per call makes two tokens minted from an identical
// plaintext byte-distinct.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	raw := hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// Decrypt reverses Encrypt. Every malformed input maps to ErrCorruptedToken.
func (c *Cipher) Decrypt(token string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrCorruptedToken)
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected iv:ciphertext", ErrCorruptedToken)
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, fmt.Errorf("%w: invalid iv", ErrCorruptedToken)
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: invalid ciphertext", ErrCorruptedToken)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedToken, err)
	}
	return unpadded, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}
