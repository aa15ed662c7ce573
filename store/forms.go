package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbolis/taste-review/model"
)

// Forms writes the forms an owner designs.
type Forms struct {
	db *sql.DB
}

func NewForms(db *sql.DB) *Forms {
	return &Forms{db}
}

// Create inserts f and its questions and returns the stored form.
func (fs *Forms) Create(ctx context.Context, restaurantID string, f model.Form) (model.Form, error) {
	tx, err := fs.db.BeginTx(ctx, nil)
	if err != nil {
		return f, err
	}
	defer tx.Rollback()

	f.ID = uuid.NewString()
	f.RestaurantID = restaurantID
	f.Version = 0
	_, err = tx.ExecContext(ctx, `
		INSERT INTO forms (id, restaurant_id, version, name, is_active, reward_text)
		VALUES (?, ?, 0, ?, ?, ?)`,
		f.ID,
		restaurantID,
		f.Name,
		f.IsActive,
		f.RewardText,
	)
	if err != nil {
		return f, fmt.Errorf("insert form: %w", err)
	}

	if f.IsActive {
		if err := deactivateOthers(ctx, tx, restaurantID, f.ID); err != nil {
			return f, err
		}
	}
	if f.Questions, err = saveQuestions(ctx, tx, f.ID, f.Questions); err != nil {
		return f, err
	}

	return f, tx.Commit()
}

// Update replaces the form's fields and questions. f.Version must be the version
// the caller read; a stale one fails with ErrConflict. Questions are matched by
// id, so answers to a kept question survive the edit.
func (fs *Forms) Update(ctx context.Context, restaurantID string, f model.Form) (model.Form, error) {
	tx, err := fs.db.BeginTx(ctx, nil)
	if err != nil {
		return f, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE forms
		SET
			name = ?,
			is_active = ?,
			reward_text = ?,
			version = version+1
		WHERE id = ?
			AND restaurant_id = ?
			AND version = ?`,
		f.Name,
		f.IsActive,
		f.RewardText,
		f.ID,
		restaurantID,
		f.Version,
	)
	if err != nil {
		return f, fmt.Errorf("update form: %w", err)
	}
	// optimistic lock
	n, err := res.RowsAffected()
	if err != nil {
		return f, err
	}
	if n < 1 {
		var exists bool
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM forms WHERE id = ? AND restaurant_id = ?`, f.ID, restaurantID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return f, ErrNotFound
		}
		if err != nil {
			return f, err
		}
		return f, ErrConflict
	}
	f.Version++
	f.RestaurantID = restaurantID

	if f.IsActive {
		if err := deactivateOthers(ctx, tx, restaurantID, f.ID); err != nil {
			return f, err
		}
	}
	if f.Questions, err = saveQuestions(ctx, tx, f.ID, f.Questions); err != nil {
		return f, err
	}

	return f, tx.Commit()
}

// Delete removes the form with its questions, submissions and answers.
func (fs *Forms) Delete(ctx context.Context, restaurantID, formID string) error {
	res, err := fs.db.ExecContext(ctx, `
		DELETE FROM forms
		WHERE id = ?
			AND restaurant_id = ?`,
		formID,
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

// deactivateOthers keeps a single active form per restaurant.
func deactivateOthers(ctx context.Context, tx *sql.Tx, restaurantID, formID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE forms
		SET is_active = 0
		WHERE restaurant_id = ?
			AND id <> ?
			AND is_active = 1`,
		restaurantID,
		formID,
	)
	if err != nil {
		return fmt.Errorf("deactivate forms: %w", err)
	}
	return nil
}

// saveQuestions makes the form's questions exactly qs, in order.
func saveQuestions(ctx context.Context, tx *sql.Tx, formID string, qs []model.Question) ([]model.Question, error) {
	existing, err := queryQuestions(ctx, tx, formID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	stale := make(map[string]bool, len(existing))
	for _, q := range existing {
		stale[q.ID] = true
	}

	// (form_id, order_index) is unique: park the current rows on negative
	// indices so the dense rewrite below never collides with them
	_, err = tx.ExecContext(ctx, `
		UPDATE questions
		SET order_index = -1 - order_index
		WHERE form_id = ?`,
		formID,
	)
	if err != nil {
		return nil, fmt.Errorf("park question order: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, form_id, type, label, description, is_required, options, order_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer insert.Close()

	update, err := tx.PrepareContext(ctx, `
		UPDATE questions
		SET type = ?, label = ?, description = ?, is_required = ?, options = ?, order_index = ?
		WHERE id = ?
			AND form_id = ?`)
	if err != nil {
		return nil, err
	}
	defer update.Close()

	saved := make([]model.Question, len(qs))
	for i, q := range qs {
		q.FormID = formID
		q.OrderIndex = i

		var optionsJson any
		if q.IsChoice() {
			for j := range q.Options {
				if q.Options[j].ID == "" {
					q.Options[j].ID = uuid.NewString()
				}
			}
			raw, err := json.Marshal(q.Options)
			if err != nil {
				return nil, fmt.Errorf("question %d: encode options: %w", i, err)
			}
			optionsJson = string(raw)
		} else {
			q.Options = nil
		}

		if stale[q.ID] {
			delete(stale, q.ID)
			_, err = update.ExecContext(ctx, q.Type, q.Label, q.Description, q.IsRequired, optionsJson, q.OrderIndex, q.ID, formID)
		} else {
			q.ID = uuid.NewString()
			_, err = insert.ExecContext(ctx, q.ID, formID, q.Type, q.Label, q.Description, q.IsRequired, optionsJson, q.OrderIndex)
		}
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		saved[i] = q
	}

	for id := range stale {
		_, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
		if err != nil {
			return nil, fmt.Errorf("delete question %s: %w", id, err)
		}
	}
	return saved, nil
}
