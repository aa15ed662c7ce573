package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/mbolis/taste-review/model"
)

// ErrInvalidName is returned when a table name has nothing to build an identifier from.
var ErrInvalidName = errors.New("invalid table name")

// Tables manages the restaurant's tables and their QR identifiers.
type Tables struct {
	db  *sql.DB
	now func() time.Time
}

func NewTables(db *sql.DB) *Tables {
	return &Tables{db: db, now: time.Now}
}

func (ts *Tables) List(ctx context.Context, restaurantID string) ([]model.Table, error) {
	rows, err := ts.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, identifier, created_at
		FROM tables
		WHERE restaurant_id = ?
		ORDER BY created_at, name`,
		restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []model.Table{}
	for rows.Next() {
		t := model.Table{}
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Name, &t.Identifier, &t.CreatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Create adds a table named name, identified by the slug of its name. An
// identifier already used by the restaurant fails with ErrConflict.
func (ts *Tables) Create(ctx context.Context, restaurantID, name string) (model.Table, error) {
	t := model.Table{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Name:         name,
		Identifier:   model.Slugify(name),
		CreatedAt:    ts.now().UTC(),
	}
	if t.Identifier == "" {
		return t, ErrInvalidName
	}

	_, err := ts.db.ExecContext(ctx, `
		INSERT INTO tables (id, restaurant_id, name, identifier, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.RestaurantID,
		t.Name,
		t.Identifier,
		t.CreatedAt,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return t, fmt.Errorf("%w: %s", ErrConflict, t.Identifier)
	}
	if err != nil {
		return t, err
	}
	return t, nil
}

func (ts *Tables) Delete(ctx context.Context, restaurantID, id string) error {
	res, err := ts.db.ExecContext(ctx, `
		DELETE FROM tables
		WHERE id = ?
			AND restaurant_id = ?`,
		id,
		restaurantID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}
