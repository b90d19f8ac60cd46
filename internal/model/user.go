// Package model defines domain entities for the application.
package model

import "time"

// User is a registered account. Handle is the unique public user name.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Handle       string    `json:"user_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the subset of a user exposed to other users.
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"user_name"`
	Email  string `json:"email"`
}

// Public strips timestamps from the user for embedding in other payloads.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Handle: u.Handle,
		Email:  u.Email,
	}
}
