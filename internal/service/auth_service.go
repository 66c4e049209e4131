package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/northwind-service/internal/auth"
	"github.com/spec-kit/northwind-service/internal/domain"
	"github.com/spec-kit/northwind-service/internal/events"
	"github.com/spec-kit/northwind-service/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned for accounts with enabled=false.
	ErrAccountDisabled = errors.New("account disabled")
)

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(subject string, roles []string, ttl time.Duration) (string, error)
}

// AuthService coordinates login and token refresh.
type AuthService struct {
	credentials repository.CredentialRepository
	tokens      TokenIssuer
	dispatcher  events.Dispatcher
	tokenTTL    time.Duration

	// unknown usernames are checked against a throwaway hash of the same cost so
	// they take as long as a wrong password
	passwordCost int
	dummyOnce    sync.Once
	dummyHash    string
	compare      func(hashed, plain string) error
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Credentials repository.CredentialRepository
	Tokens      TokenIssuer
	Dispatcher  events.Dispatcher
	TokenTTL    time.Duration
	// PasswordCost is the bcrypt cost of stored hashes; defaults to bcrypt.DefaultCost.
	PasswordCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cost := deps.PasswordCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		credentials:  deps.Credentials,
		tokens:       deps.Tokens,
		dispatcher:   deps.Dispatcher,
		tokenTTL:     ttl,
		passwordCost: cost,
		compare:      auth.ComparePassword,
	}
}

// Login checks username/password against the credential store and issues a token
// carrying the account's roles.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	cred, err := s.credentials.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.compare(s.unknownUserHash(), password)
			s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "unknown_user"})
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := s.compare(cred.PasswordHash, password); err != nil {
		s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "bad_password"})
		return "", ErrInvalidCredentials
	}
	// only reported once the password matched, so a guess reveals nothing about the account
	if !cred.Enabled {
		s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "disabled"})
		return "", ErrAccountDisabled
	}

	roles := cred.RoleList()
	token, err := s.tokens.Issue(cred.Username, roles, s.tokenTTL)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.EventLoginSucceeded, cred.Username, events.LoginSucceededPayload{Roles: roles})
	return token, nil
}

// Refresh re-issues a token for an identity the gate already verified.
func (s *AuthService) Refresh(ctx context.Context, identity *domain.Identity) (string, error) {
	if identity == nil {
		return "", auth.ErrInvalidToken
	}
	token, err := s.tokens.Issue(identity.Subject, identity.Roles, s.tokenTTL)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.EventTokenRefreshed, identity.Subject, events.TokenRefreshedPayload{PreviousTokenID: identity.TokenID})
	return token, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := auth.HashPassword(uuid.NewString(), s.passwordCost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subject string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
