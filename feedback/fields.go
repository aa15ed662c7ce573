package feedback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/mbolis/taste-review/model"
)

const MaxTextLength = 500

// Option is one selectable entry of a rendered field.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// View describes how a question is presented with its current value.
type View struct {
	QuestionID  string             `json:"question_id"`
	Type        model.QuestionType `json:"type"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Required    bool               `json:"required"`
	Options     []Option           `json:"options,omitempty"`
	Value       Value              `json:"value"`
	MaxLength   int                `json:"max_length,omitempty"`
	Hint        string             `json:"hint,omitempty"`
	Unsupported bool               `json:"unsupported,omitempty"`
}

// Field turns a question and its value into a View, and raw visitor input into a Value.
type Field interface {
	Render(q model.Question, v Value) View
	Parse(q model.Question, raw json.RawMessage) (Value, error)
}

var fields = map[model.QuestionType]Field{
	model.QuestionSentiment:      sentimentField{},
	model.QuestionStarRating:     starRatingField{},
	model.QuestionOpenText:       openTextField{},
	model.QuestionMultipleChoice: multipleChoiceField{},
	model.QuestionSingleChoice:   singleChoiceField{},
}

func FieldFor(t model.QuestionType) (Field, bool) {
	f, ok := fields[t]
	return f, ok
}

// Render never fails: unknown question types get a placeholder view.
func Render(q model.Question, v Value) View {
	f, ok := FieldFor(q.Type)
	if !ok {
		view := baseView(q, Value{})
		view.Unsupported = true
		view.Hint = "Tipo di domanda non supportato"
		return view
	}
	return f.Render(q, v)
}

// Parse decodes and checks raw input for q. It does not apply the required rule.
func Parse(q model.Question, raw json.RawMessage) (Value, error) {
	f, ok := FieldFor(q.Type)
	if !ok {
		return Value{}, &ValidationError{QuestionID: q.ID, Err: ErrUnsupportedType}
	}
	return f.Parse(q, raw)
}

func baseView(q model.Question, v Value) View {
	view := View{
		QuestionID: q.ID,
		Type:       q.Type,
		Label:      q.Label,
		Required:   q.IsRequired,
		Value:      v,
	}
	if q.Description != nil {
		view.Description = *q.Description
	}
	return view
}

func decode(q model.Question, raw json.RawMessage) (Value, error) {
	v, err := DecodeValue(q.Type, raw)
	if err != nil {
		return Value{}, &ValidationError{QuestionID: q.ID, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
	}
	return v, nil
}

func invalid(q model.Question, format string, args ...any) error {
	return &ValidationError{QuestionID: q.ID, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidValue}, args...)...)}
}

type sentimentField struct{}

var sentimentOptions = []Option{
	{Value: string(model.SentimentBad), Label: "Negativa"},
	{Value: string(model.SentimentOK), Label: "Ok"},
	{Value: string(model.SentimentGreat), Label: "Positiva"},
}

func (sentimentField) Render(q model.Question, v Value) View {
	view := baseView(q, v)
	view.Options = make([]Option, len(sentimentOptions))
	for i, opt := range sentimentOptions {
		opt.Selected = opt.Value == string(v.Sentiment)
		view.Options[i] = opt
	}
	return view
}

func (sentimentField) Parse(q model.Question, raw json.RawMessage) (Value, error) {
	v, err := decode(q, raw)
	if err != nil {
		return v, err
	}
	if v.Sentiment != "" && !v.Sentiment.Valid() {
		return Value{}, invalid(q, "sentiment %q", v.Sentiment)
	}
	return v, nil
}

type starRatingField struct{}

var starLabels = []string{"Seleziona una valutazione", "Pessimo", "Scarso", "Nella media", "Buono", "Eccellente"}

func (starRatingField) Render(q model.Question, v Value) View {
	view := baseView(q, v)
	view.Options = make([]Option, 5)
	for i := range view.Options {
		stars := i + 1
		view.Options[i] = Option{
			Value:    strconv.Itoa(stars),
			Label:    starLabels[stars],
			Selected: stars <= v.Rating,
		}
	}
	if v.Rating >= 0 && v.Rating < len(starLabels) {
		view.Hint = starLabels[v.Rating]
	}
	return view
}

func (starRatingField) Parse(q model.Question, raw json.RawMessage) (Value, error) {
	v, err := decode(q, raw)
	if err != nil {
		return v, err
	}
	if v.Rating < 0 || v.Rating > 5 {
		return Value{}, invalid(q, "rating %d out of 1-5", v.Rating)
	}
	return v, nil
}

type openTextField struct{}

func (openTextField) Render(q model.Question, v Value) View {
	view := baseView(q, v)
	view.MaxLength = MaxTextLength
	view.Hint = fmt.Sprintf("%d/%d caratteri", utf8.RuneCountInString(v.Text), MaxTextLength)
	return view
}

func (openTextField) Parse(q model.Question, raw json.RawMessage) (Value, error) {
	v, err := decode(q, raw)
	if err != nil {
		return v, err
	}
	if utf8.RuneCountInString(v.Text) > MaxTextLength {
		return Value{}, &ValidationError{QuestionID: q.ID, Err: ErrTooLong}
	}
	return v, nil
}

func optionLabels(q model.Question) map[string]bool {
	labels := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		labels[opt.Label] = true
	}
	return labels
}

func choiceOptions(q model.Question, selected func(label string) bool) []Option {
	opts := make([]Option, len(q.Options))
	for i, opt := range q.Options {
		opts[i] = Option{Value: opt.Label, Label: opt.Label, Selected: selected(opt.Label)}
	}
	return opts
}

type multipleChoiceField struct{}

func (multipleChoiceField) Render(q model.Question, v Value) View {
	chosen := make(map[string]bool, len(v.Choices))
	for _, c := range v.Choices {
		chosen[c] = true
	}
	view := baseView(q, v)
	view.Options = choiceOptions(q, func(label string) bool { return chosen[label] })
	return view
}

func (multipleChoiceField) Parse(q model.Question, raw json.RawMessage) (Value, error) {
	v, err := decode(q, raw)
	if err != nil {
		return v, err
	}
	labels := optionLabels(q)
	seen := make(map[string]bool, len(v.Choices))
	choices := make([]string, 0, len(v.Choices))
	for _, c := range v.Choices {
		if !labels[c] {
			return Value{}, invalid(q, "option %q", c)
		}
		if !seen[c] {
			seen[c] = true
			choices = append(choices, c)
		}
	}
	v.Choices = choices
	return v, nil
}

type singleChoiceField struct{}

func (singleChoiceField) Render(q model.Question, v Value) View {
	view := baseView(q, v)
	view.Options = choiceOptions(q, func(label string) bool { return label == v.Text })
	return view
}

func (singleChoiceField) Parse(q model.Question, raw json.RawMessage) (Value, error) {
	v, err := decode(q, raw)
	if err != nil {
		return v, err
	}
	if v.Text != "" && !optionLabels(q)[v.Text] {
		return Value{}, invalid(q, "option %q", v.Text)
	}
	return v, nil
}
