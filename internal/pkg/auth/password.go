package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the default hashing cost for PINs and passwords
const BcryptCost = 12

// Hasher hashes secrets one way and verifies raw values against stored hashes.
type Hasher interface {
	Hash(raw string) (string, error)
	Check(hash, raw string) bool
}

// BcryptHasher is a Hasher backed by bcrypt
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher creates a BcryptHasher; a non-positive cost falls back to BcryptCost
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = BcryptCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash returns the bcrypt hash of raw
func (h *BcryptHasher) Hash(raw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(raw), h.Cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Check reports whether raw matches hash. A malformed hash never matches.
func (h *BcryptHasher) Check(hash, raw string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	return err == nil
}
