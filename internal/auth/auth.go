package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Token kinds embedded in the claims so a refresh token can never be
// presented as an access token.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned when a token fails validation for any reason.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenKind is returned when a token of the wrong kind is presented.
	ErrWrongTokenKind = errors.New("wrong token kind")
)

// Claims are the JWT claims carried by both access and refresh tokens.
type Claims struct {
	UserPublicID string `json:"public_id"`
	Kind         string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates signed tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a TokenManager signing with the given secret.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken returns a short-lived token identifying the user.
func (m *TokenManager) IssueAccessToken(publicID string, now time.Time) (string, error) {
	return m.issue(publicID, TokenKindAccess, now, m.accessTTL)
}

// IssueRefreshToken returns a long-lived token that can be exchanged for a
// fresh access token.
func (m *TokenManager) IssueRefreshToken(publicID string, now time.Time) (string, error) {
	return m.issue(publicID, TokenKindRefresh, now, m.refreshTTL)
}

func (m *TokenManager) issue(publicID, kind string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserPublicID: publicID,
		Kind:         kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token, checks the signature and expiry, and verifies
// the token is of the expected kind.
func (m *TokenManager) Validate(tokenString, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewPublicID generates the opaque identifier embedded in tokens instead of
// the database primary key.
func NewPublicID() string {
	return uuid.NewString()
}
