package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var ErrShortCipherText = errors.New("cipher text too short")

var ticketReferencePattern = regexp.MustCompile(`^[A-Z0-9]{5}-[ND][0-9]{2,}$`)

func EncryptMessage(key []byte, message string) (string, error) {
	plaintext := []byte(message)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	cipherText := gcm.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(cipherText), nil
}

func DecryptMessage(key []byte, message string) (*string, error) {
	cipherText, err := hex.DecodeString(message)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(cipherText) < gcm.NonceSize() {
		return nil, ErrShortCipherText
	}

	decryptedData, err := gcm.Open(nil, cipherText[:gcm.NonceSize()], cipherText[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	plain := string(decryptedData)
	return &plain, nil
}

// QRSecretKey decodes the hex encoded AES key in API_QRC_SECRET. A nil key
// means ticket codes are not sealed.
func QRSecretKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("API_QRC_SECRET is not hex: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, fmt.Errorf("API_QRC_SECRET must decode to 16, 24 or 32 bytes, got %d", len(key))
}

// SealTicketCode returns the text printed in a ticket's QR code.
func SealTicketCode(key []byte, reference string) (string, error) {
	if key == nil {
		return reference, nil
	}
	return EncryptMessage(key, reference)
}

// OpenTicketCode resolves a scanned code to a ticket reference. Plain
// references are accepted as typed by door staff.
func OpenTicketCode(key []byte, code string) (string, error) {
	code = strings.TrimSpace(code)
	if ref := strings.ToUpper(code); ticketReferencePattern.MatchString(ref) {
		return ref, nil
	}
	if key == nil {
		return "", fmt.Errorf("unrecognized ticket code %q", code)
	}
	ref, err := DecryptMessage(key, code)
	if err != nil {
		return "", err
	}
	return *ref, nil
}

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}

// WithSuffix appends the environment to queue and topic names outside
// production.
func WithSuffix(name string) string {
	env := os.Getenv("API_ENV")
	if env == "" || env == "production" {
		return name
	}
	return fmt.Sprintf("%s_%s", name, env)
}
