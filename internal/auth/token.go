package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/userdesk/apiserver/types"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = time.Hour

// ErrInvalidToken is returned for any token that cannot be accepted:
// bad signature, malformed claims, or elapsed expiry.
var ErrInvalidToken = errors.New("invalid token")

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID int    `json:"uid"`
	Email  string `json:"email"`
}

// TokenService issues and validates HS256-signed session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
	}
}

// Issue signs a token asserting the given user identity, expiring one hour
// from now.
func (s *TokenService) Issue(userID int, email string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
		Email:  email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks signature and expiry and returns the identity the token
// asserts. Every failure mode collapses into ErrInvalidToken so callers
// cannot leak which check failed.
func (s *TokenService) Validate(tokenString string) (types.SessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return types.SessionClaims{}, ErrInvalidToken
	}
	if claims.UserID < 1 || strings.TrimSpace(claims.Email) == "" {
		return types.SessionClaims{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return types.SessionClaims{}, ErrInvalidToken
	}

	session := types.SessionClaims{
		SubjectID: claims.UserID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}
