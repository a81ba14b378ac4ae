package core

import "golang.org/x/crypto/bcrypt"

// HashCost is the bcrypt cost used for passwords and PINs.
var HashCost = bcrypt.DefaultCost

func HashSecret(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), HashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckSecret compares a plaintext secret with its bcrypt hash.
func CheckSecret(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
