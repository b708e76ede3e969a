package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/order-engine/internal/database"
	"github.com/safar/order-engine/internal/models"
)

const userEmailConstraint = "users_email_key"

// CreateUser registers a customer account. Emails are stored trimmed and
// lower-cased so the unique constraint is case-insensitive.
func CreateUser(ctx context.Context, q DBTX, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, fmt.Errorf("create user: email is required")
	}

	user := &models.User{}
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (email, name)
		VALUES ($1, $2)
		RETURNING id, email, name, created_at, updated_at, version`,
		email, name,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt, &user.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == userEmailConstraint {
			return nil, fmt.Errorf("create user %s: %w", email, database.ErrEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetUser loads the customer an order is placed for. Placement uses it both
// to reject unknown ids and to default the contact email.
func GetUser(ctx context.Context, q DBTX, id int64) (*models.User, error) {
	user := &models.User{}
	err := q.QueryRowContext(ctx, `
		SELECT id, email, name, created_at, updated_at, version
		FROM users
		WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt, &user.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return user, nil
}
