package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with a slow, salted KDF.
// bcrypt is the idiomatic Go choice for this.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
