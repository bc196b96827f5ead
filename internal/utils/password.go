package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the bcrypt hash stored for the operator
// account (ADMIN_PASS_HASH). The cost comes from BCRYPT_COST.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether a login attempt matches the stored
// operator hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
