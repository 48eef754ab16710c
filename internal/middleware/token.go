package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-fileops/internal/model"
)

var errInvalidToken = errors.New("invalid token")

// tokenClaims is the HS256 payload accepted by the API. Tokens are minted by an
// external identity service sharing JWT_SECRET.
type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns nil for an empty secret, which disables auth.
func NewTokenValidator(secret string) *TokenValidator {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &TokenValidator{secret: []byte(secret)}
}

func (v *TokenValidator) ValidateToken(tokenString string) (*model.AuthClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, errInvalidToken
	}
	if claims.Subject == "" {
		return nil, errInvalidToken
	}

	return &model.AuthClaims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     strings.ToLower(claims.Role),
	}, nil
}

// IssueToken signs a token for subject. Used by operators and tests.
func (v *TokenValidator) IssueToken(subject string, username string, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
		Role:     role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
