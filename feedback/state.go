package feedback

import (
	"context"
	"encoding/json"

	"github.com/mbolis/taste-review/model"
)

const (
	submissionKey = "feedback_submission"
	answersKey    = "feedback_answers"
	sentimentKey  = "feedback_sentiment"
	completedKey  = "feedback_completed"
)

// Session is the visitor-scoped key/value persistence the flow resumes from.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}

// State is the typed view of one form's session keys. A visitor answering two
// forms in the same browser session keeps two independent states.
type State struct {
	session Session
	formID  string
}

func NewState(s Session, formID string) *State {
	return &State{session: s, formID: formID}
}

func (st *State) key(name string) string {
	return name + ":" + st.formID
}

func (st *State) get(ctx context.Context, name string) (string, error) {
	value, _, err := st.session.Get(ctx, st.key(name))
	return value, err
}

func (st *State) set(ctx context.Context, name, value string) error {
	return st.session.Set(ctx, st.key(name), value)
}

func (st *State) SubmissionID(ctx context.Context) (string, error) {
	return st.get(ctx, submissionKey)
}

func (st *State) SetSubmissionID(ctx context.Context, id string) error {
	return st.set(ctx, submissionKey, id)
}

// Answers returns the cached answers by question id. An unreadable cache is
// treated as empty.
func (st *State) Answers(ctx context.Context) (map[string]json.RawMessage, error) {
	raw, err := st.get(ctx, answersKey)
	if err != nil {
		return nil, err
	}
	answers := map[string]json.RawMessage{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			return map[string]json.RawMessage{}, nil
		}
	}
	return answers, nil
}

// Answer returns the cached answer for q, if any.
func (st *State) Answer(ctx context.Context, q model.Question) (Value, bool, error) {
	answers, err := st.Answers(ctx)
	if err != nil {
		return Value{}, false, err
	}
	raw, ok := answers[q.ID]
	if !ok {
		return Value{}, false, nil
	}
	v, err := DecodeValue(q.Type, raw)
	if err != nil || v.IsEmpty() {
		return Value{}, false, nil
	}
	return v, true, nil
}

// PutAnswer caches v for the question. An empty value drops the cached answer.
func (st *State) PutAnswer(ctx context.Context, questionID string, v Value) error {
	answers, err := st.Answers(ctx)
	if err != nil {
		return err
	}
	if v.IsEmpty() {
		delete(answers, questionID)
	} else {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		answers[questionID] = raw
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	return st.set(ctx, answersKey, string(encoded))
}

func (st *State) Sentiment(ctx context.Context) (model.Sentiment, error) {
	s, err := st.get(ctx, sentimentKey)
	return model.Sentiment(s), err
}

func (st *State) SetSentiment(ctx context.Context, s model.Sentiment) error {
	return st.set(ctx, sentimentKey, string(s))
}

// Completed returns the id of the submission this session finished, if any.
func (st *State) Completed(ctx context.Context) (string, error) {
	return st.get(ctx, completedKey)
}

func (st *State) MarkCompleted(ctx context.Context, submissionID string) error {
	return st.set(ctx, completedKey, submissionID)
}

// Clear forgets the form's submission. Other forms of the session are kept.
func (st *State) Clear(ctx context.Context) error {
	return st.session.Remove(ctx,
		st.key(submissionKey), st.key(answersKey), st.key(sentimentKey), st.key(completedKey))
}
