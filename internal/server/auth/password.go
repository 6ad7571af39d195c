package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHashCost is the bcrypt work factor for new password digests.
// The salt and cost are embedded in the digest itself.
const PasswordHashCost = 10

// HashPassword produces a salted bcrypt digest of the plaintext password.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// digest. Any mismatch, including a malformed digest, returns false; this
// never returns an error to the caller.
func CheckPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
