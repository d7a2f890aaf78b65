package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const MaxPasswordLen = 128

// HashParams are the argon2id parameters used for new hashes (RFC 9106 second recommendation, 64 MiB)
var HashParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns a salted argon2id hash in PHC string format
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := argon2id.CreateHash(password, HashParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether password matches the stored hash.
// Both comparisons run in constant time. A malformed or unknown stored hash
// never verifies.
func VerifyPassword(hash, password string) bool {
	if isBcryptHash(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false
	}
	return match
}

// NeedsRehash reports whether a stored hash predates argon2id and should be
// replaced after the next successful verification
func NeedsRehash(hash string) bool {
	return isBcryptHash(hash)
}

// IsMalformedHash distinguishes a corrupt stored hash from a plain mismatch,
// which callers may want to log
func IsMalformedHash(hash string) bool {
	if isBcryptHash(hash) {
		_, err := bcrypt.Cost([]byte(hash))
		return err != nil
	}
	_, _, _, err := argon2id.DecodeHash(hash)
	return err != nil
}

var (
	decoyOnce sync.Once
	decoyHash string
)

// VerifyDecoy runs one verification against a throwaway hash. Login calls it
// for unknown emails so they take as long as a wrong password.
func VerifyDecoy(password string) {
	decoyOnce.Do(func() {
		decoyHash, _ = argon2id.CreateHash("decoy-password", HashParams)
	})
	_ = VerifyPassword(decoyHash, password)
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
