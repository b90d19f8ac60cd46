package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token format: tl_{prefix}_{secret}
// Example: tl_7a9x3k1f_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenPrefixLen = 8  // hex encoded 4 bytes, stored for lookup
	TokenSecretLen = 32 // hex encoded 16 bytes
)

var (
	// ErrInvalidTokenFormat indicates the bearer token is malformed.
	ErrInvalidTokenFormat = errors.New("invalid access token format")

	tokenFormatRegex = regexp.MustCompile(`^tl_([a-f0-9]{8})_([a-f0-9]{32})$`)
)

// GeneratedToken holds a freshly minted access token.
type GeneratedToken struct {
	Plaintext string // returned to the client once
	Hash      string // stored
	Prefix    string // stored, indexed
}

// GenerateToken mints a new access token and hashes it with h.
func GenerateToken(h *Hasher) (*GeneratedToken, error) {
	prefix, err := randomHex(TokenPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(TokenSecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := fmt.Sprintf("tl_%s_%s", prefix, secret)

	hash, err := h.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    prefix,
	}, nil
}

// ParseTokenPrefix validates the token format and returns its lookup prefix.
func ParseTokenPrefix(token string) (string, error) {
	matches := tokenFormatRegex.FindStringSubmatch(token)
	if matches == nil {
		return "", ErrInvalidTokenFormat
	}
	return matches[1], nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
