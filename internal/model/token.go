package model

import "time"

// AccessToken is a bearer credential issued on register or login.
// Only the argon2id hash of the plaintext token is persisted.
type AccessToken struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"` // Never serialize
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsExpired reports whether the token has an expiry that lies before now.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// AuthContext holds the identity resolved from a bearer token.
// It is what gets cached; the full User is reloaded per request.
type AuthContext struct {
	UserID      string
	TokenID     string
	TokenPrefix string
}
