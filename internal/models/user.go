package models

import (
	"time"
)

// User is a registered account. PasswordHash is only populated by reads that
// explicitly ask for it and is never serialized.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	RefreshTokens []string  `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
