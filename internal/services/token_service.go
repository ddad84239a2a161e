package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// TokenTTL is the lifetime of an issued token.
const TokenTTL = 7 * 24 * time.Hour

// TokenTypeUser is the only token type the server issues.
const TokenTypeUser = "user"

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt signing secret is not configured")
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims is the payload carried by a bearer token.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Type     string `json:"type"`
	jwt.StandardClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService. A nil clock means time.Now.
func NewTokenService(secret string, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: []byte(secret), now: now}
}

// Configured reports whether a signing secret is present.
func (s *TokenService) Configured() bool {
	return len(s.secret) > 0
}

// Issue signs a token for the given user that expires TokenTTL from now.
func (s *TokenService) Issue(userID, username string) (string, error) {
	if !s.Configured() {
		return "", ErrMissingSecret
	}

	now := s.now()
	claims := Claims{
		ID:       userID,
		Username: username,
		Type:     TokenTypeUser,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TokenTTL).Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of tokenString and
// returns its claims.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	if !s.Configured() {
		return nil, ErrMissingSecret
	}
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	// Expiry is checked below against the injected clock.
	parser := &jwt.Parser{SkipClaimsValidation: true}
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if claims.ID == "" || claims.Type != TokenTypeUser {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	return claims, nil
}
