package feedback

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mbolis/taste-review/model"
)

var ErrUnsupportedType = errors.New("unsupported question type")

// Value is an answer tagged with the type of question it answers. Only the
// field matching Type is meaningful. A Value with an empty Type is "no answer".
type Value struct {
	Type      model.QuestionType
	Text      string
	Rating    int
	Choices   []string
	Sentiment model.Sentiment
}

func SentimentValue(s model.Sentiment) Value {
	return Value{Type: model.QuestionSentiment, Sentiment: s}
}

func RatingValue(stars int) Value {
	return Value{Type: model.QuestionStarRating, Rating: stars}
}

func TextValue(text string) Value {
	return Value{Type: model.QuestionOpenText, Text: text}
}

func ChoicesValue(labels ...string) Value {
	return Value{Type: model.QuestionMultipleChoice, Choices: labels}
}

func ChoiceValue(label string) Value {
	return Value{Type: model.QuestionSingleChoice, Text: label}
}

// IsEmpty reports whether the value counts as unanswered for a required question.
func (v Value) IsEmpty() bool {
	switch v.Type {
	case model.QuestionSentiment:
		return v.Sentiment == ""
	case model.QuestionStarRating:
		return v.Rating == 0
	case model.QuestionOpenText, model.QuestionSingleChoice:
		return v.Text == ""
	case model.QuestionMultipleChoice:
		return len(v.Choices) == 0
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsEmpty() {
		return []byte("null"), nil
	}
	switch v.Type {
	case model.QuestionSentiment:
		return json.Marshal(v.Sentiment)
	case model.QuestionStarRating:
		return json.Marshal(v.Rating)
	case model.QuestionOpenText, model.QuestionSingleChoice:
		return json.Marshal(v.Text)
	case model.QuestionMultipleChoice:
		return json.Marshal(v.Choices)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, v.Type)
}

// DecodeValue reads the JSON shape stored for question type t. Missing or null
// input decodes to the empty value of that type.
func DecodeValue(t model.QuestionType, raw json.RawMessage) (Value, error) {
	v := Value{Type: t}
	empty := len(raw) == 0 || string(raw) == "null"

	var err error
	switch t {
	case model.QuestionSentiment:
		if !empty {
			err = json.Unmarshal(raw, &v.Sentiment)
		}
	case model.QuestionStarRating:
		if !empty {
			err = json.Unmarshal(raw, &v.Rating)
		}
	case model.QuestionOpenText, model.QuestionSingleChoice:
		if !empty {
			err = json.Unmarshal(raw, &v.Text)
		}
	case model.QuestionMultipleChoice:
		if !empty {
			err = json.Unmarshal(raw, &v.Choices)
		}
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	if err != nil {
		return Value{}, fmt.Errorf("decode %s value: %w", t, err)
	}
	return v, nil
}
