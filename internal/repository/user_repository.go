package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/coopvalles/asamblea-api/internal/models"
)

// UserRepository provides database access to staff accounts. The announcement
// engine only ever reads accounts — administration of the roster lives in a
// separate module.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, active, last_login, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListRecipientIDs returns the ids of all active accounts that carry a login
// identity, optionally restricted to a single role. Accounts without an email
// are roster entries that cannot receive deliveries.
func (r *UserRepository) ListRecipientIDs(ctx context.Context, role *models.UserRole) ([]string, error) {
	query := `SELECT id FROM users WHERE active = TRUE AND email IS NOT NULL`
	args := []interface{}{}
	if role != nil {
		query += ` AND role = $1`
		args = append(args, *role)
	}
	query += ` ORDER BY id`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list recipient ids: %w", err)
	}
	return ids, nil
}
