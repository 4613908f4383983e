package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used by HashPassword
const PasswordCost = 12

// Hasher hashes and verifies passwords with bcrypt. The salt is
// generated per call and embedded in the resulting hash.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given cost, out of range values
// fall back to the package default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor
func (h *Hasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash
func (h *Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", Wrap(err, CategoryInternal, "failed to hash password")
	}
	return string(hash), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *Hasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return Wrap(err, CategoryInternal, "failed to compare password")
	}
	return nil
}

// Verify reports whether password matches hash
func (h *Hasher) Verify(password, hash string) bool {
	return h.ComparePasswordAndHash(password, hash) == nil
}

var defaultHasher = NewHasher(passwordHashCost())

// HashPassword hashes with the default hasher
func HashPassword(password string) (string, error) {
	return defaultHasher.HashPassword(password)
}

// ComparePasswordAndHash compares with the default hasher
func ComparePasswordAndHash(password, hash string) error {
	return defaultHasher.ComparePasswordAndHash(password, hash)
}
