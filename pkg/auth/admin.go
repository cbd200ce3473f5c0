package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadAdminKey = errors.New("bad admin key")

// HashAdminKey produces the bcrypt hash stored in configuration.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAdminKey compares a presented key against the configured hash.
func CheckAdminKey(hash, key string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrBadAdminKey
	}
	return nil
}
