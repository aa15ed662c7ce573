package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/taste-review/feedback"
	"github.com/mbolis/taste-review/model"
)

// Submissions is the sqlite implementation of feedback.Store. Writes to a
// completed submission fail with feedback.ErrSubmissionClosed.
type Submissions struct {
	db  *sql.DB
	now func() time.Time
}

var _ feedback.Store = (*Submissions)(nil)

func NewSubmissions(db *sql.DB) *Submissions {
	return &Submissions{db: db, now: time.Now}
}

func (s *Submissions) CreateSubmission(ctx context.Context, formID string, tableIdentifier *string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, form_id, table_identifier, created_at)
		VALUES (?, ?, ?, ?)`,
		id,
		formID,
		tableIdentifier,
		s.now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Submissions) FindAnswer(ctx context.Context, submissionID, questionID string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM answers
		WHERE submission_id = ?
			AND question_id = ?`,
		submissionID,
		questionID,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return id, true, nil
}

// InsertAnswer writes the answer row. A concurrent insert of the same question
// turns into an update of the existing row.
func (s *Submissions) InsertAnswer(ctx context.Context, submissionID, questionID string, value json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (id, submission_id, question_id, value, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE EXISTS (
			SELECT 1 FROM submissions
			WHERE id = ?
				AND completed_at IS NULL
		)
		ON CONFLICT (submission_id, question_id) DO UPDATE SET value = excluded.value`,
		uuid.NewString(),
		submissionID,
		questionID,
		string(value),
		s.now().UTC(),
		submissionID,
	)
	if err != nil {
		return err
	}
	return s.verify(ctx, res, submissionID)
}

func (s *Submissions) UpdateAnswer(ctx context.Context, answerID string, value json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE answers
		SET value = ?
		WHERE id = ?
			AND EXISTS (
				SELECT 1 FROM submissions s
				WHERE s.id = answers.submission_id
					AND s.completed_at IS NULL
			)`,
		string(value),
		answerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}

	var submissionID string
	err = s.db.QueryRowContext(ctx, `SELECT submission_id FROM answers WHERE id = ?`, answerID).Scan(&submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("answer %s: %w", answerID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.state(ctx, submissionID)
}

func (s *Submissions) UpdateSentiment(ctx context.Context, submissionID string, sentiment model.Sentiment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions
		SET overall_sentiment = ?
		WHERE id = ?
			AND completed_at IS NULL`,
		string(sentiment),
		submissionID,
	)
	if err != nil {
		return err
	}
	return s.verify(ctx, res, submissionID)
}

func (s *Submissions) CompleteSubmission(ctx context.Context, submissionID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE submissions
		SET completed_at = ?
		WHERE id = ?
			AND completed_at IS NULL`,
		at,
		submissionID,
	)
	if err != nil {
		return err
	}
	return s.verify(ctx, res, submissionID)
}

// verify explains a guarded write that touched no row.
func (s *Submissions) verify(ctx context.Context, res sql.Result, submissionID string) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	return s.state(ctx, submissionID)
}

func (s *Submissions) state(ctx context.Context, submissionID string) error {
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT completed_at FROM submissions WHERE id = ?`, submissionID).Scan(&completedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return feedback.ErrSubmissionNotFound
	case err != nil:
		return err
	case completedAt.Valid:
		return feedback.ErrSubmissionClosed
	}
	return fmt.Errorf("submission %s: no row written", submissionID)
}

// ForForm lists the form's submissions with their answers, newest first.
func (s *Submissions) ForForm(ctx context.Context, formID string, completedOnly bool) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.form_id, s.table_identifier, s.overall_sentiment, s.completed_at, s.created_at,
			a.id, a.question_id, q.label, a.value, a.created_at
		FROM submissions s
		LEFT OUTER JOIN answers a ON (s.id = a.submission_id)
		LEFT OUTER JOIN questions q ON (q.id = a.question_id)
		WHERE s.form_id = ?
			AND (? = 0 OR s.completed_at IS NOT NULL)
		ORDER BY s.created_at DESC, s.id, q.order_index`,
		formID,
		completedOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		sub := model.Submission{}
		var table, sentiment sql.NullString
		var completedAt sql.NullTime
		var answerID, questionID, label, value sql.NullString
		var answeredAt sql.NullTime

		err = rows.Scan(
			&sub.ID, &sub.FormID, &table, &sentiment, &completedAt, &sub.CreatedAt,
			&answerID, &questionID, &label, &value, &answeredAt,
		)
		if err != nil {
			return nil, err
		}

		last := len(submissions) - 1
		if last < 0 || submissions[last].ID != sub.ID {
			if table.Valid {
				sub.TableIdentifier = &table.String
			}
			if sentiment.Valid && sentiment.String != "" {
				v := model.Sentiment(sentiment.String)
				sub.OverallSentiment = &v
			}
			if completedAt.Valid {
				sub.CompletedAt = &completedAt.Time
			}
			sub.Answers = []model.Answer{}
			submissions = append(submissions, sub)
			last++
		}

		if answerID.Valid {
			submissions[last].Answers = append(submissions[last].Answers, model.Answer{
				ID:           answerID.String,
				SubmissionID: sub.ID,
				QuestionID:   questionID.String,
				Label:        label.String,
				Value:        json.RawMessage(value.String),
				CreatedAt:    answeredAt.Time,
			})
		}
	}
	return submissions, rows.Err()
}

// Stats counts the completed submissions of a form by overall sentiment. A
// submission without sentiment counts only toward the total.
func (s *Submissions) Stats(ctx context.Context, formID string) (model.SentimentStats, error) {
	stats := model.SentimentStats{}
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(overall_sentiment, ''), COUNT(*)
		FROM submissions
		WHERE form_id = ?
			AND completed_at IS NOT NULL
		GROUP BY overall_sentiment`,
		formID,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var sentiment string
		var n int
		if err := rows.Scan(&sentiment, &n); err != nil {
			return stats, err
		}
		stats.Total += n
		switch model.Sentiment(sentiment) {
		case model.SentimentGreat:
			stats.Great += n
		case model.SentimentOK:
			stats.OK += n
		case model.SentimentBad:
			stats.Bad += n
		}
	}
	return stats, rows.Err()
}
