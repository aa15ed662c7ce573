package feedback

import (
	"context"

	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/metrics"
	"github.com/mbolis/taste-review/model"
	"github.com/mbolis/taste-review/platform"
)

type Link struct {
	Platform string            `json:"platform"`
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	Category platform.Category `json:"category"`
}

// RewardPage is the terminal screen of the flow.
type RewardPage struct {
	Restaurant  string          `json:"restaurant"`
	Message     string          `json:"message,omitempty"`
	Sentiment   model.Sentiment `json:"sentiment,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	ReviewLinks []Link          `json:"review_links"`
	SocialLinks []Link          `json:"social_links"`
}

// Resolver decides which outbound links the reward screen offers.
type Resolver struct {
	platforms *platform.Registry
}

func NewResolver(platforms *platform.Registry) *Resolver {
	return &Resolver{platforms: platforms}
}

// Resolve reads the session's sentiment, then clears the session. Only a
// "great" sentiment is offered the review platforms.
func (r *Resolver) Resolve(ctx context.Context, st *State, restaurant model.Restaurant, form model.Form) (RewardPage, error) {
	sentiment, err := st.Sentiment(ctx)
	if err != nil {
		return RewardPage{}, persistence("session.get_sentiment", err)
	}
	if err := st.Clear(ctx); err != nil {
		log.WithFields(log.Fields{"restaurant": restaurant.Slug}).Warn("session.clear: ", err)
	}

	page := RewardPage{
		Restaurant:  restaurant.Name,
		Sentiment:   sentiment,
		ReviewLinks: []Link{},
		SocialLinks: []Link{},
	}
	if form.RewardText != nil {
		page.Message = *form.RewardText
	}

	happy := sentiment == model.SentimentGreat
	for _, p := range r.platforms.All() {
		value := restaurant.SocialLinks[p.Key]
		if value == "" {
			continue
		}
		link := Link{Platform: p.Key, Name: p.Name, URL: p.URL(value), Category: p.Category}
		switch p.Category {
		case platform.Review:
			if happy {
				page.ReviewLinks = append(page.ReviewLinks, link)
			}
		case platform.Social:
			page.SocialLinks = append(page.SocialLinks, link)
		}
	}

	switch {
	case happy && len(page.ReviewLinks) > 0:
		page.Prompt = "Ti è piaciuta l'esperienza? Condividi la tua opinione!"
		metrics.Rewards.WithLabelValues("review").Inc()
	default:
		if len(page.SocialLinks) > 0 {
			page.Prompt = "Seguici sui social!"
		}
		metrics.Rewards.WithLabelValues("social").Inc()
	}
	return page, nil
}
