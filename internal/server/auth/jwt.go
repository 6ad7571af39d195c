// Package auth implements the stateless session-token core: HS256-signed
// JWTs carrying user identity claims, and bcrypt password digests.
package auth

import (
	"errors"
	"time"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ExpiryLeeway is the clock-skew tolerance applied when validating the
// expiry claim. Tokens are accepted up to this long past their exp instant.
const ExpiryLeeway = 30 * time.Second

// Claims carries the identity facts embedded in a session token:
// the standard registered claims plus the user id and display name.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	FullName string `json:"full_name"`
}

// GenerateToken mints a signed session token for the given user. The token
// embeds issued-at and expiry timestamps and is valid for validityDuration.
func GenerateToken(userID, fullName string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   userID,
		FullName: fullName,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the token's signature and expiry and returns the
// embedded claims. Failures are discriminated sentinels:
//   - common.ErrTokenExpired for a valid signature past its expiry
//   - common.ErrInvalidToken for everything else (bad signature, wrong
//     algorithm, malformed token)
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	}, jwt.WithLeeway(ExpiryLeeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
