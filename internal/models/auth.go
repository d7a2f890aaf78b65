package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the set of user claims embedded in an access token.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

// TokenClaims is the JWT payload of an access token.
type TokenClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the user claims carried by the token.
func (c *TokenClaims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, Email: c.Email}
}

// IdentityOf returns the token identity of a user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}
