// Package store reads and writes restaurants, forms and submissions in the
// sqlite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mbolis/taste-review/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a form was changed since the version the caller
	// read, or when a table identifier is already taken.
	ErrConflict = errors.New("conflict")
)

// Loader resolves the rows a feedback route or an owner request points at.
type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row scanner) (model.Restaurant, error) {
	r := model.Restaurant{}
	var links sql.NullString
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &links, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return r, err
	}

	r.SocialLinks = map[string]string{}
	if links.Valid && links.String != "" {
		if err := json.Unmarshal([]byte(links.String), &r.SocialLinks); err != nil {
			return r, fmt.Errorf("parse social links: %w", err)
		}
	}
	return r, nil
}

func (l *Loader) RestaurantBySlug(ctx context.Context, slug string) (model.Restaurant, error) {
	return scanRestaurant(l.db.QueryRowContext(ctx, `
		SELECT id, name, slug, social_links, created_at
		FROM restaurants
		WHERE slug = ?`,
		slug,
	))
}

func (l *Loader) Restaurant(ctx context.Context, id string) (model.Restaurant, error) {
	return scanRestaurant(l.db.QueryRowContext(ctx, `
		SELECT id, name, slug, social_links, created_at
		FROM restaurants
		WHERE id = ?`,
		id,
	))
}

func scanForm(row scanner) (model.Form, error) {
	f := model.Form{}
	var reward sql.NullString
	err := row.Scan(&f.ID, &f.RestaurantID, &f.Version, &f.Name, &f.IsActive, &reward, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	if reward.Valid {
		f.RewardText = &reward.String
	}
	return f, err
}

// Form loads a form of the restaurant with its ordered questions. With
// activeOnly an inactive form is reported as ErrNotFound.
func (l *Loader) Form(ctx context.Context, restaurantID, formID string, activeOnly bool) (model.Form, error) {
	f, err := scanForm(l.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, version, name, is_active, reward_text, created_at
		FROM forms
		WHERE id = ?
			AND restaurant_id = ?`,
		formID,
		restaurantID,
	))
	if err != nil {
		return f, err
	}
	if activeOnly && !f.IsActive {
		return model.Form{}, ErrNotFound
	}

	f.Questions, err = l.Questions(ctx, f.ID)
	return f, err
}

// Forms lists the restaurant's forms, newest first, without their questions.
func (l *Loader) Forms(ctx context.Context, restaurantID string) ([]model.Form, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, restaurant_id, version, name, is_active, reward_text, created_at
		FROM forms
		WHERE restaurant_id = ?
		ORDER BY created_at DESC, name`,
		restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// Questions returns the form's questions by ascending order index.
func (l *Loader) Questions(ctx context.Context, formID string) ([]model.Question, error) {
	return queryQuestions(ctx, l.db, formID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryQuestions(ctx context.Context, db querier, formID string) ([]model.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, form_id, type, label, description, is_required, options, order_index
		FROM questions
		WHERE form_id = ?
		ORDER BY order_index, created_at`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		var description, opts sql.NullString
		err = rows.Scan(&q.ID, &q.FormID, &q.Type, &q.Label, &description, &q.IsRequired, &opts, &q.OrderIndex)
		if err != nil {
			return nil, err
		}
		if description.Valid {
			q.Description = &description.String
		}
		if opts.Valid && opts.String != "" {
			if err := json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
				return nil, fmt.Errorf("parse options of question %s: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
