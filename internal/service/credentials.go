package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes and verifies passwords.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type bcryptCredentials struct{ cost int }

// NewCredentials returns a bcrypt-backed store. cost<=0 means bcrypt.DefaultCost.
func NewCredentials(cost int) Credentials {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptCredentials{cost: cost}
}

func (c *bcryptCredentials) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (c *bcryptCredentials) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
