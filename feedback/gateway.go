package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/metrics"
	"github.com/mbolis/taste-review/model"
)

// Store is the remote persistence of submissions and answers.
type Store interface {
	// CreateSubmission inserts an in-progress submission and returns its id.
	CreateSubmission(ctx context.Context, formID string, tableIdentifier *string) (string, error)
	// FindAnswer looks up the answer row of (submission, question).
	FindAnswer(ctx context.Context, submissionID, questionID string) (answerID string, found bool, err error)
	InsertAnswer(ctx context.Context, submissionID, questionID string, value json.RawMessage) error
	UpdateAnswer(ctx context.Context, answerID string, value json.RawMessage) error
	UpdateSentiment(ctx context.Context, submissionID string, sentiment model.Sentiment) error
	// CompleteSubmission sets completed_at once; a second call fails with ErrSubmissionClosed.
	CompleteSubmission(ctx context.Context, submissionID string, at time.Time) error
}

// SaveRequest is one answer to record.
type SaveRequest struct {
	FormID          string
	TableIdentifier string
	Preview         bool
	Question        model.Question
	Value           Value
}

// Gateway records answers, creating the submission on the first write of a session.
type Gateway struct {
	store Store
}

func NewGateway(store Store) *Gateway {
	return &Gateway{store: store}
}

// Save records req and returns the submission id it was written to. Calling it
// again for the same question updates the existing answer row.
func (g *Gateway) Save(ctx context.Context, st *State, req SaveRequest) (string, error) {
	q := req.Question
	v := req.Value
	if !v.IsEmpty() && v.Type != q.Type {
		return "", &ValidationError{QuestionID: q.ID, Err: fmt.Errorf("%w: %s value for %s question", ErrInvalidValue, v.Type, q.Type)}
	}

	if req.Preview {
		if err := g.mirror(ctx, st, q, v); err != nil {
			return "", persistence("session.mirror_answer", err)
		}
		metrics.AnswersSaved.WithLabelValues("preview").Inc()
		return "", nil
	}

	submissionID, err := g.submission(ctx, st, req)
	if err != nil {
		return "", err
	}

	if !v.IsEmpty() {
		raw, err := json.Marshal(v)
		if err != nil {
			return submissionID, &ValidationError{QuestionID: q.ID, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
		}
		if err := g.upsert(ctx, submissionID, q.ID, raw); err != nil {
			return submissionID, err
		}
		if q.Type == model.QuestionSentiment {
			// last write wins when a form carries more than one sentiment question
			if err := g.store.UpdateSentiment(ctx, submissionID, v.Sentiment); err != nil {
				return submissionID, persistence("db.update_sentiment", err)
			}
		}
	} else {
		metrics.AnswersSaved.WithLabelValues("skip").Inc()
	}

	if err := g.mirror(ctx, st, q, v); err != nil {
		return submissionID, persistence("session.mirror_answer", err)
	}
	return submissionID, nil
}

// Ensure returns the session's submission, creating it when nothing was recorded yet.
func (g *Gateway) Ensure(ctx context.Context, st *State, req SaveRequest) (string, error) {
	return g.submission(ctx, st, req)
}

// submission returns the cached id, or creates the row. A cached id is trusted
// without asking the store, so a session never creates two submissions.
func (g *Gateway) submission(ctx context.Context, st *State, req SaveRequest) (string, error) {
	id, err := st.SubmissionID(ctx)
	if err != nil {
		return "", persistence("session.get_submission", err)
	}
	if id != "" {
		return id, nil
	}

	var table *string
	if req.TableIdentifier != "" {
		table = &req.TableIdentifier
	}
	id, err = g.store.CreateSubmission(ctx, req.FormID, table)
	if err != nil {
		return "", persistence("db.insert_submission", err)
	}
	metrics.SubmissionsCreated.Inc()
	log.WithFields(log.Fields{"submission": id, "form": req.FormID}).Debug("submission created")

	if err := st.SetSubmissionID(ctx, id); err != nil {
		return "", persistence("session.set_submission", err)
	}
	return id, nil
}

func (g *Gateway) upsert(ctx context.Context, submissionID, questionID string, raw json.RawMessage) error {
	answerID, found, err := g.store.FindAnswer(ctx, submissionID, questionID)
	if err != nil {
		return persistence("db.find_answer", err)
	}
	if found {
		if err := g.store.UpdateAnswer(ctx, answerID, raw); err != nil {
			return persistence("db.update_answer", err)
		}
		metrics.AnswersSaved.WithLabelValues("update").Inc()
		return nil
	}
	if err := g.store.InsertAnswer(ctx, submissionID, questionID, raw); err != nil {
		return persistence("db.insert_answer", err)
	}
	metrics.AnswersSaved.WithLabelValues("insert").Inc()
	return nil
}

func (g *Gateway) mirror(ctx context.Context, st *State, q model.Question, v Value) error {
	if q.Type == model.QuestionSentiment && !v.IsEmpty() {
		if err := st.SetSentiment(ctx, v.Sentiment); err != nil {
			return err
		}
	}
	return st.PutAnswer(ctx, q.ID, v)
}

// closed reports whether err says the submission can no longer be written.
func closed(err error) bool {
	return errors.Is(err, ErrSubmissionClosed)
}
