package server

import "golang.org/x/crypto/bcrypt"

// bcrypt cost for HashKey; verification accepts any cost
const bcryptCost = 12

// HashKey hashes a gateway key for storage in config.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyKey checks a presented key against the configured hash.
func VerifyKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
