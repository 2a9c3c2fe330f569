package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"cardledger/internal/models"

	"golang.org/x/crypto/hkdf"
)

// CardNumberLength is the length of every issued PAN, check digit included.
const CardNumberLength = 16

var ErrMalformedCiphertext = errors.New("malformed card ciphertext")

// CardCipher seals card numbers with AES-256-GCM. The stored form is
// base64(nonce || ciphertext).
type CardCipher struct {
	aead cipher.AEAD
}

// NewCardCipher derives a 256-bit key from secret.
func NewCardCipher(secret string) (*CardCipher, error) {
	if secret == "" {
		return nil, errors.New("card encryption key not configured")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("cardledger card number")), key); err != nil {
		return nil, fmt.Errorf("failed to derive card key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &CardCipher{aead: aead}, nil
}

func (c *CardCipher) Encrypt(number string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(number), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *CardCipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", ErrMalformedCiphertext
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt card number: %w", err)
	}
	return string(plain), nil
}

// CardPrefix returns the issuer digit for a card type.
func CardPrefix(t models.CardType) string {
	switch t {
	case models.CardTypeVisa:
		return "4"
	case models.CardTypeMastercard:
		return "5"
	case models.CardTypeMir:
		return "2"
	default:
		return "3"
	}
}

// GenerateCardNumber issues a random Luhn-valid number for the card type.
func GenerateCardNumber(t models.CardType) (string, error) {
	var sb strings.Builder
	sb.WriteString(CardPrefix(t))

	ten := big.NewInt(10)
	for sb.Len() < CardNumberLength-1 {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate card digit: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}

	payload := sb.String()
	return payload + string(rune('0'+LuhnCheckDigit(payload))), nil
}

// LuhnCheckDigit computes the digit that makes payload+digit pass the Luhn check.
func LuhnCheckDigit(payload string) int {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// LuhnValid reports whether number (check digit included) passes the Luhn check.
func LuhnValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	last := len(number) - 1
	return LuhnCheckDigit(number[:last]) == int(number[last]-'0')
}

// MaskCardNumber keeps the first six and last four digits.
func MaskCardNumber(number string) string {
	if len(number) < 10 {
		return strings.Repeat("*", len(number))
	}
	return number[:6] + "******" + number[len(number)-4:]
}

// ExpiryDate is the day after the last day of the month, years from now.
// The month is taken before any day overflow so Feb 29 stays in February.
func ExpiryDate(now time.Time, years int) time.Time {
	return time.Date(now.Year()+years, now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
