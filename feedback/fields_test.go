package feedback

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/taste-review/model"
)

func choiceQuestion(t model.QuestionType) model.Question {
	q := question("qc", t, false, 0)
	q.Options = []model.QuestionOption{{ID: "a", Label: "Pizza"}, {ID: "b", Label: "Pasta"}, {ID: "c", Label: "Dolci"}}
	return q
}

func TestRenderSentiment(t *testing.T) {
	q := question("q1", model.QuestionSentiment, true, 0)
	view := Render(q, SentimentValue(model.SentimentOK))

	require.Len(t, view.Options, 3)
	assert.Equal(t, "Negativa", view.Options[0].Label)
	assert.False(t, view.Options[0].Selected)
	assert.True(t, view.Options[1].Selected)
	assert.True(t, view.Required)
}

func TestRenderStarRating(t *testing.T) {
	q := question("q2", model.QuestionStarRating, true, 0)

	view := Render(q, Value{})
	assert.Equal(t, "Seleziona una valutazione", view.Hint)

	view = Render(q, RatingValue(4))
	require.Len(t, view.Options, 5)
	assert.Equal(t, "Buono", view.Hint)
	assert.True(t, view.Options[3].Selected)
	assert.False(t, view.Options[4].Selected)
}

func TestRenderOpenText(t *testing.T) {
	desc := "Raccontaci"
	q := question("q3", model.QuestionOpenText, false, 0)
	q.Description = &desc

	view := Render(q, TextValue("ciao"))
	assert.Equal(t, "4/500 caratteri", view.Hint)
	assert.Equal(t, MaxTextLength, view.MaxLength)
	assert.Equal(t, "Raccontaci", view.Description)
}

func TestRenderUnsupported(t *testing.T) {
	q := question("qx", "slider", true, 0)
	view := Render(q, RatingValue(2))
	assert.True(t, view.Unsupported)
	assert.Equal(t, "Tipo di domanda non supportato", view.Hint)
	assert.True(t, view.Value.IsEmpty())
	assert.Equal(t, q.Label, view.Label)

	_, supported := FieldFor(q.Type)
	assert.False(t, supported)
}

func TestRenderChoices(t *testing.T) {
	view := Render(choiceQuestion(model.QuestionMultipleChoice), ChoicesValue("Pizza", "Dolci"))
	require.Len(t, view.Options, 3)
	assert.True(t, view.Options[0].Selected)
	assert.False(t, view.Options[1].Selected)
	assert.True(t, view.Options[2].Selected)

	view = Render(choiceQuestion(model.QuestionSingleChoice), ChoiceValue("Pasta"))
	assert.False(t, view.Options[0].Selected)
	assert.True(t, view.Options[1].Selected)
}

func TestParse(t *testing.T) {
	v, err := Parse(question("q1", model.QuestionSentiment, true, 0), json.RawMessage(`"great"`))
	require.NoError(t, err)
	assert.Equal(t, SentimentValue(model.SentimentGreat), v)

	_, err = Parse(question("q1", model.QuestionSentiment, true, 0), json.RawMessage(`"meh"`))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = Parse(question("q2", model.QuestionStarRating, true, 0), json.RawMessage(`6`))
	assert.ErrorIs(t, err, ErrInvalidValue)

	long := strings.Repeat("è", MaxTextLength+1)
	raw, _ := json.Marshal(long)
	_, err = Parse(question("q3", model.QuestionOpenText, false, 0), raw)
	assert.ErrorIs(t, err, ErrTooLong)
	assert.Equal(t, "Il testo può contenere al massimo 500 caratteri", Message(err))

	v, err = Parse(choiceQuestion(model.QuestionMultipleChoice), json.RawMessage(`["Pizza","Pizza","Pasta"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Pizza", "Pasta"}, v.Choices)

	_, err = Parse(choiceQuestion(model.QuestionSingleChoice), json.RawMessage(`"Sushi"`))
	assert.ErrorIs(t, err, ErrInvalidValue)

	v, err = Parse(question("q3", model.QuestionOpenText, false, 0), json.RawMessage(`null`))
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())

	_, err = Parse(question("qx", "slider", false, 0), json.RawMessage(`1`))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
