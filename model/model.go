package model

import (
	"encoding/json"
	"time"
)

type QuestionType string

const (
	QuestionSentiment      QuestionType = "sentiment"
	QuestionStarRating     QuestionType = "star_rating"
	QuestionOpenText       QuestionType = "open_text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
)

// Sentiment is the three-way overall experience rating.
type Sentiment string

const (
	SentimentBad   Sentiment = "bad"
	SentimentOK    Sentiment = "ok"
	SentimentGreat Sentiment = "great"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentBad, SentimentOK, SentimentGreat:
		return true
	}
	return false
}

type Restaurant struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name" validate:"required,max=100"`
	Slug        string            `json:"slug,omitempty"`
	SocialLinks map[string]string `json:"social_links"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
}

type Form struct {
	ID           string     `json:"id,omitempty"`
	RestaurantID string     `json:"restaurant_id,omitempty"`
	Version      int        `json:"version"`
	Name         string     `json:"name" validate:"required,max=100"`
	IsActive     bool       `json:"is_active"`
	RewardText   *string    `json:"reward_text" validate:"omitempty,max=500"`
	Questions    []Question `json:"questions,omitempty" validate:"min=1,max=6,dive"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
}

type QuestionOption struct {
	ID    string `json:"id"`
	Label string `json:"label" validate:"required,max=100"`
}

type Question struct {
	ID          string           `json:"id,omitempty"`
	FormID      string           `json:"form_id,omitempty"`
	Type        QuestionType     `json:"type" validate:"oneof=sentiment star_rating open_text multiple_choice single_choice"`
	Label       string           `json:"label" validate:"required,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=300"`
	IsRequired  bool             `json:"is_required"`
	Options     []QuestionOption `json:"options" validate:"max=10,dive"`
	OrderIndex  int              `json:"order_index"`
}

// IsChoice reports whether answers are picked from Options.
func (q Question) IsChoice() bool {
	return q.Type == QuestionMultipleChoice || q.Type == QuestionSingleChoice
}

// Table is a physical table of the restaurant. Identifier is the slug carried
// by the table's QR code as the ?t= token.
type Table struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id,omitempty"`
	Name         string    `json:"name" validate:"required,max=50"`
	Identifier   string    `json:"identifier"`
	CreatedAt    time.Time `json:"created_at"`
}

// SentimentStats counts completed submissions by overall sentiment.
type SentimentStats struct {
	Total int `json:"total"`
	Great int `json:"great"`
	OK    int `json:"ok"`
	Bad   int `json:"bad"`
}

type Submission struct {
	ID               string     `json:"id"`
	FormID           string     `json:"form_id"`
	TableIdentifier  *string    `json:"table_identifier"`
	OverallSentiment *Sentiment `json:"overall_sentiment"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	Answers          []Answer   `json:"answers"`
}

type Answer struct {
	ID           string          `json:"id"`
	SubmissionID string          `json:"submission_id,omitempty"`
	QuestionID   string          `json:"question_id"`
	Label        string          `json:"label,omitempty"`
	Value        json.RawMessage `json:"value"`
	CreatedAt    time.Time       `json:"created_at"`
}
