package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/northwind-service/internal/domain"
)

const signingKeySize = 32

// ErrInvalidToken covers malformed, expired and badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies HS256 access tokens. The signing key lives only in
// memory, so a restart invalidates every outstanding token.
type TokenService struct {
	key []byte
	now func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source used for iat/exp.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithSigningKey pins the HMAC key instead of generating one.
func WithSigningKey(key []byte) TokenOption {
	return func(s *TokenService) { s.key = append([]byte(nil), key...) }
}

// Claims describes the JWT payload.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewTokenService builds a service with a freshly generated signing key.
func NewTokenService(opts ...TokenOption) (*TokenService, error) {
	s := &TokenService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.key) == 0 {
		s.key = make([]byte, signingKeySize)
		if _, err := rand.Read(s.key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	return s, nil
}

// Issue signs a token for subject carrying roles, valid for ttl.
func (s *TokenService) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}

	issuedAt := s.now()
	claims := &Claims{
		Roles: uniqueRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the identity the token carries.
// Role values are not validated here.
func (s *TokenService) Verify(tokenStr string) (*domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	// exp is exclusive: a token is dead at the instant it expires.
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	identity := &domain.Identity{
		Subject:   claims.Subject,
		Roles:     claims.Roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

func uniqueRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
