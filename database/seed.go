package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mbolis/taste-review/config"
	"golang.org/x/crypto/bcrypt"
)

// EnsureOwner creates the owner's restaurant and login when they do not exist yet.
// An existing username keeps its password.
func EnsureOwner(ctx context.Context, db *sql.DB, owner config.Owner) (created bool, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, owner.Username).Scan(&exists)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("look up owner: %w", err)
	}

	var restaurantID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM restaurants WHERE slug = ?`, owner.RestaurantSlug).Scan(&restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		name := owner.RestaurantName
		if name == "" {
			name = owner.RestaurantSlug
		}
		restaurantID = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO restaurants (id, name, slug, social_links) VALUES (?, ?, ?, '{}')`,
			restaurantID, name, owner.RestaurantSlug,
		)
	}
	if err != nil {
		return false, fmt.Errorf("ensure restaurant: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(owner.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, restaurant_id) VALUES (?, ?, ?)`,
		owner.Username, hash, restaurantID,
	)
	if err != nil {
		return false, fmt.Errorf("insert owner: %w", err)
	}

	return true, tx.Commit()
}
