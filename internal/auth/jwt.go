package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is what the external identity provider asserts about a
// caller: a stable subject id and a verified email. The core never
// validates credentials itself; it only verifies the provider's signature
// and maps subject id to a User record.
type IdentityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyIdentityToken checks the provider's HMAC signature and returns
// the claims. Subject and email must both be present.
func VerifyIdentityToken(tokenString, secretKey string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid identity token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("identity token missing subject")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("identity token missing email")
	}
	return claims, nil
}

// SignIdentityToken issues a provider-style token. Used by tests and the
// local dev loop; production tokens come from the identity provider.
func SignIdentityToken(subjectID, email, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &IdentityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}
