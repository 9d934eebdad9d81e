package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/galynx-chat/galynx-server/internal/storage"
)

// AccessClaims holds the JWT claims for an access token: sub=user_id,
// ws=workspace_id, role, plus the standard iat/exp.
type AccessClaims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"ws"`
	Role        string `json:"role"`
}

// UserID parses the Subject claim as a UUID.
func (c AccessClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Workspace parses the WorkspaceID claim as a UUID.
func (c AccessClaims) Workspace() (uuid.UUID, error) {
	return uuid.Parse(c.WorkspaceID)
}

func newAccessToken(userID, workspaceID uuid.UUID, role storage.Role, secret string, ttl time.Duration, issuer string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret must not be empty")
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		WorkspaceID: workspaceID.String(),
		Role:        string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken parses and validates an access token, enforcing HMAC
// signing and a ±30s clock-skew allowance on exp/iat/nbf.
func ValidateAccessToken(tokenStr, secret, issuer string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	var parserOpts []jwt.ParserOption
	parserOpts = append(parserOpts, jwt.WithLeeway(30*time.Second))
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, parserOpts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
