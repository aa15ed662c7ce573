package model

// MaxQuestionsPerForm bounds the questions of one form.
const MaxQuestionsPerForm = 6

// FormTemplate is a ready-made question set an owner can start a form from.
type FormTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

func optional() *string {
	s := "Facoltativo"
	return &s
}

var Templates = []FormTemplate{
	{
		ID:          "quick-simple",
		Name:        "Veloce e Semplice",
		Description: "2 domande: valutazione generale + commento",
		Questions: []Question{
			{Type: QuestionSentiment, Label: "Come è stata la tua esperienza?", IsRequired: true, OrderIndex: 0},
			{Type: QuestionOpenText, Label: "Vuoi lasciarci un commento?", Description: optional(), OrderIndex: 1},
		},
	},
	{
		ID:          "detailed",
		Name:        "Feedback Dettagliato",
		Description: "4 domande: valutazione + cibo + servizio + commento",
		Questions: []Question{
			{Type: QuestionSentiment, Label: "Come è stata la tua esperienza complessiva?", IsRequired: true, OrderIndex: 0},
			{Type: QuestionStarRating, Label: "Come valuti il cibo?", IsRequired: true, OrderIndex: 1},
			{Type: QuestionStarRating, Label: "Come valuti il servizio?", IsRequired: true, OrderIndex: 2},
			{Type: QuestionOpenText, Label: "Hai suggerimenti per migliorare?", Description: optional(), OrderIndex: 3},
		},
	},
}

// Template looks up a template by id.
func Template(id string) (FormTemplate, bool) {
	for _, t := range Templates {
		if t.ID == id {
			return t, true
		}
	}
	return FormTemplate{}, false
}
