package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mbolis/taste-review/model"
	"github.com/mbolis/taste-review/session"
)

type fakeSubmission struct {
	formID      string
	table       *string
	sentiment   model.Sentiment
	completedAt *time.Time
	completions int
}

type fakeAnswer struct {
	id           string
	submissionID string
	questionID   string
	value        json.RawMessage
}

// fakeStore is an in-memory Store that counts every remote call.
type fakeStore struct {
	mu          sync.Mutex
	seq         int
	submissions map[string]*fakeSubmission
	answers     []*fakeAnswer
	calls       int

	failCreate error
	failInsert error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{submissions: make(map[string]*fakeSubmission)}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) open(submissionID string) (*fakeSubmission, error) {
	sub, ok := s.submissions[submissionID]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if sub.completedAt != nil {
		return nil, ErrSubmissionClosed
	}
	return sub, nil
}

func (s *fakeStore) CreateSubmission(ctx context.Context, formID string, table *string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failCreate != nil {
		return "", s.failCreate
	}
	id := s.nextID("sub")
	s.submissions[id] = &fakeSubmission{formID: formID, table: table}
	return id, nil
}

func (s *fakeStore) FindAnswer(ctx context.Context, submissionID, questionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, a := range s.answers {
		if a.submissionID == submissionID && a.questionID == questionID {
			return a.id, true, nil
		}
	}
	return "", false, nil
}

func (s *fakeStore) InsertAnswer(ctx context.Context, submissionID, questionID string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failInsert != nil {
		return s.failInsert
	}
	if _, err := s.open(submissionID); err != nil {
		return err
	}
	s.answers = append(s.answers, &fakeAnswer{
		id:           s.nextID("ans"),
		submissionID: submissionID,
		questionID:   questionID,
		value:        value,
	})
	return nil
}

func (s *fakeStore) UpdateAnswer(ctx context.Context, answerID string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, a := range s.answers {
		if a.id == answerID {
			if _, err := s.open(a.submissionID); err != nil {
				return err
			}
			a.value = value
			return nil
		}
	}
	return fmt.Errorf("answer %s not found", answerID)
}

func (s *fakeStore) UpdateSentiment(ctx context.Context, submissionID string, sentiment model.Sentiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	sub, err := s.open(submissionID)
	if err != nil {
		return err
	}
	sub.sentiment = sentiment
	return nil
}

func (s *fakeStore) CompleteSubmission(ctx context.Context, submissionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	sub, err := s.open(submissionID)
	if err != nil {
		return err
	}
	sub.completedAt = &at
	sub.completions++
	return nil
}

func (s *fakeStore) answersOf(submissionID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for _, a := range s.answers {
		if a.submissionID == submissionID {
			out[a.questionID] = string(a.value)
		}
	}
	return out
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func newState(t *testing.T) *State {
	t.Helper()
	return NewState(session.Bind(session.NewMemory(time.Hour), session.NewID()), "form-1")
}

func strptr(s string) *string { return &s }

func question(id string, t model.QuestionType, required bool, order int) model.Question {
	return model.Question{ID: id, FormID: "form-1", Type: t, Label: "Domanda " + id, IsRequired: required, OrderIndex: order}
}

// tableFlow is a three question form: sentiment, stars and an optional comment.
func tableFlow() Flow {
	return Flow{
		Form: model.Form{ID: "form-1", RestaurantID: "rest-1", Name: "Veloce", IsActive: true},
		Questions: []model.Question{
			question("q1", model.QuestionSentiment, true, 0),
			question("q2", model.QuestionStarRating, true, 1),
			question("q3", model.QuestionOpenText, false, 2),
		},
		TableIdentifier: "tavolo-5",
	}
}
