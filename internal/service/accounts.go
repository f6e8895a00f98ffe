package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/vocalizeapp/vocalize/internal/auth"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/internal/metrics"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AccountsRepository is the persistence surface the accounts service needs
type AccountsRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateAPIKeyHash(ctx context.Context, userID, hash string) error
}

// Accounts implements signup, login and API key management
type Accounts struct {
	repo          AccountsRepository
	sessions      *auth.Sessions
	crypto        auth.Crypto
	signupCredits int64
}

// NewAccounts creates the accounts service
func NewAccounts(repo AccountsRepository, sessions *auth.Sessions, crypto auth.Crypto, signupCredits int64) *Accounts {
	return &Accounts{
		repo:          repo,
		sessions:      sessions,
		crypto:        crypto,
		signupCredits: signupCredits,
	}
}

// Signup registers a new account and mints its first session. The API key
// is returned once and stored only as a digest.
func (a *Accounts) Signup(ctx context.Context, email, password string) (*models.User, string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return nil, "", "", err
	}

	passwordHash, err := auth.HashPassword(a.crypto, password)
	if err != nil {
		return nil, "", "", err
	}

	apiKey, apiKeyHash, err := auth.NewAPIKey(a.crypto)
	if err != nil {
		return nil, "", "", err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		APIKeyHash:   apiKeyHash,
		Credits:      a.signupCredits,
	}

	if err := a.repo.CreateUser(ctx, user); err != nil {
		return nil, "", "", err
	}

	token, err := a.sessions.Mint(user.ID)
	if err != nil {
		return nil, "", "", err
	}
	metrics.SessionsMintedTotal.Inc()

	return user, token, apiKey, nil
}

// Login verifies credentials and mints a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (a *Accounts) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", auth.ErrUnauthenticated
		}
		return nil, "", err
	}

	if !auth.VerifyPassword(a.crypto, user.PasswordHash, password) {
		return nil, "", auth.ErrUnauthenticated
	}

	token, err := a.sessions.Mint(user.ID)
	if err != nil {
		return nil, "", err
	}
	metrics.SessionsMintedTotal.Inc()

	return user, token, nil
}

// Get returns the account for an authenticated user ID
func (a *Accounts) Get(ctx context.Context, userID string) (*models.User, error) {
	return a.repo.GetUser(ctx, userID)
}

// RotateAPIKey replaces the account's API key and returns the new plaintext
// key once.
func (a *Accounts) RotateAPIKey(ctx context.Context, userID string) (string, error) {
	apiKey, apiKeyHash, err := auth.NewAPIKey(a.crypto)
	if err != nil {
		return "", err
	}

	if err := a.repo.UpdateAPIKeyHash(ctx, userID, apiKeyHash); err != nil {
		return "", err
	}

	return apiKey, nil
}

// SessionTTL exposes the configured session lifetime for cookie framing
func (a *Accounts) SessionTTL() time.Duration {
	return a.sessions.TTL()
}

func validateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}
