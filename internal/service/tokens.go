package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nestnote/backend/internal/model"
)

const refreshSecretBytes = 48

type authClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *AuthService) generateAccessToken(account *model.Account) (string, error) {
	now := time.Now()
	claims := authClaims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ParseAccessToken verifies the bearer token and returns the identity it
// carries. Any failure maps to ErrUnauthorized without further detail.
func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{
		ID:    claims.Subject,
		Email: claims.Email,
	}, nil
}

func newRefreshSecret() (string, string, error) {
	raw := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)
	return secret, hashRefreshSecret(secret), nil
}

// hashRefreshSecret is the storage and lookup form of a refresh secret. The
// raw secret never reaches the database.
func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
