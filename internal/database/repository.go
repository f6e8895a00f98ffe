package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Users

// CreateUser creates a new user record. Returns ErrConflict when the email
// is already registered.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `
		INSERT INTO users (id, email, password_hash, api_key_hash, credits)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.APIKeyHash, user.Credits,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUserBy(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUserBy(ctx, "email", email)
}

// GetUserByAPIKeyHash retrieves a user by the digest of a presented API key
func (r *Repository) GetUserByAPIKeyHash(ctx context.Context, hash string) (*models.User, error) {
	return r.getUserBy(ctx, "api_key_hash", hash)
}

func (r *Repository) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User

	query := fmt.Sprintf(`
		SELECT id, email, password_hash, api_key_hash, credits, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)

	err := r.db.Pool.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.APIKeyHash,
		&user.Credits, &user.CreatedAt, &user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpdateAPIKeyHash replaces a user's stored API key digest
func (r *Repository) UpdateAPIKeyHash(ctx context.Context, userID, hash string) error {
	query := `
		UPDATE users SET api_key_hash = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, hash)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DebitCredits atomically deducts amount from a user's balance. The check
// and the deduction are a single conditional update so concurrent requests
// cannot drive the balance negative. Returns ErrInsufficientCredits when
// the balance cannot cover the amount.
func (r *Repository) DebitCredits(ctx context.Context, userID string, amount int64) error {
	query := `
		UPDATE users
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit credits: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the user is unknown or the balance is short; distinguish
		// so handlers can return 404 vs 402.
		if _, err := r.GetUser(ctx, userID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInsufficientCredits
	}

	return nil
}

// RefundCredits returns amount to a user's balance. Used to compensate a
// debit whose downstream work failed.
func (r *Repository) RefundCredits(ctx context.Context, userID string, amount int64) error {
	query := `
		UPDATE users
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to refund credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
