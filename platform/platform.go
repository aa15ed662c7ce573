// Package platform lists the review and social sites a restaurant can link
// to, and how a configured value turns into a URL.
package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type Category string

const (
	Review Category = "review"
	Social Category = "social"
)

type Platform struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	ValueLabel  string   `json:"value_label"`
	Placeholder string   `json:"placeholder"`
	// Prefix is shown before handle-based values, e.g. "@".
	Prefix string `json:"prefix,omitempty"`
	// AllowedDomains are hostname substrings a URL value must contain.
	AllowedDomains []string `json:"-"`

	buildURL func(value string) string
}

// URL builds the outbound link for a stored value.
func (p Platform) URL(value string) string {
	if p.buildURL == nil {
		return value
	}
	return p.buildURL(value)
}

func rawURL(v string) string { return v }

func prefixed(base string) func(string) string {
	return func(v string) string { return base + v }
}

var defaults = []Platform{
	{
		Key:         "google",
		Name:        "Google",
		Category:    Review,
		ValueLabel:  "Place ID",
		Placeholder: "ChIJxxxxxxxxxxxxxxxxx",
		buildURL:    prefixed("https://search.google.com/local/writereview?placeid="),
	},
	{
		Key:            "tripadvisor",
		Name:           "TripAdvisor",
		Category:       Review,
		ValueLabel:     "URL completo",
		Placeholder:    "https://www.tripadvisor.it/Restaurant_Review-...",
		AllowedDomains: []string{"tripadvisor."},
		buildURL:       rawURL,
	},
	{
		Key:            "thefork",
		Name:           "TheFork",
		Category:       Review,
		ValueLabel:     "URL completo",
		Placeholder:    "https://www.thefork.it/ristorante/...",
		AllowedDomains: []string{"thefork.", "lafourchette."},
		buildURL:       rawURL,
	},
	{
		Key:            "yelp",
		Name:           "Yelp",
		Category:       Review,
		ValueLabel:     "URL completo",
		Placeholder:    "https://www.yelp.it/biz/...",
		AllowedDomains: []string{"yelp."},
		buildURL:       rawURL,
	},
	{
		Key:            "trustpilot",
		Name:           "Trustpilot",
		Category:       Review,
		ValueLabel:     "URL completo",
		Placeholder:    "https://it.trustpilot.com/review/...",
		AllowedDomains: []string{"trustpilot."},
		buildURL:       rawURL,
	},
	{
		Key:         "instagram",
		Name:        "Instagram",
		Category:    Social,
		ValueLabel:  "Username",
		Placeholder: "tuoristorante",
		Prefix:      "@",
		buildURL:    prefixed("https://instagram.com/"),
	},
	{
		Key:            "facebook",
		Name:           "Facebook",
		Category:       Social,
		ValueLabel:     "URL completo",
		Placeholder:    "https://www.facebook.com/tuoristorante",
		AllowedDomains: []string{"facebook.com", "fb.com"},
		buildURL:       rawURL,
	},
	{
		Key:         "tiktok",
		Name:        "TikTok",
		Category:    Social,
		ValueLabel:  "Username",
		Placeholder: "tuoristorante",
		Prefix:      "@",
		buildURL:    prefixed("https://tiktok.com/@"),
	},
	{
		Key:            "youtube",
		Name:           "YouTube",
		Category:       Social,
		ValueLabel:     "URL completo",
		Placeholder:    "https://youtube.com/@tuoristorante",
		AllowedDomains: []string{"youtube.com", "youtu.be"},
		buildURL:       rawURL,
	},
	{
		Key:         "twitter",
		Name:        "X / Twitter",
		Category:    Social,
		ValueLabel:  "Username",
		Placeholder: "tuoristorante",
		Prefix:      "@",
		buildURL:    prefixed("https://x.com/"),
	},
	{
		Key:            "linkedin",
		Name:           "LinkedIn",
		Category:       Social,
		ValueLabel:     "URL completo",
		Placeholder:    "https://linkedin.com/company/tuoristorante",
		AllowedDomains: []string{"linkedin.com"},
		buildURL:       rawURL,
	},
}

// Registry looks platforms up by key and keeps their display order.
type Registry struct {
	order []Platform
	byKey map[string]Platform
}

func NewRegistry(platforms ...Platform) *Registry {
	r := &Registry{byKey: make(map[string]Platform, len(platforms))}
	for _, p := range platforms {
		if _, dup := r.byKey[p.Key]; dup {
			panic("platform: duplicate key " + p.Key)
		}
		r.order = append(r.order, p)
		r.byKey[p.Key] = p
	}
	return r
}

// Default returns the registry of all supported platforms.
func Default() *Registry {
	return NewRegistry(defaults...)
}

func (r *Registry) Lookup(key string) (Platform, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

func (r *Registry) All() []Platform {
	return append([]Platform(nil), r.order...)
}

// InvalidValueError carries the Italian message shown next to the offending field.
type InvalidValueError struct {
	Key     string
	Message string
}

func (e *InvalidValueError) Error() string {
	return e.Message
}

var (
	rePlaceID = regexp.MustCompile(`^ChIJ[A-Za-z0-9_-]{20,50}$`)
	reHandle  = regexp.MustCompile(`^[a-zA-Z0-9._]{1,50}$`)
	reScheme  = regexp.MustCompile(`(?i)^https?://`)
)

// Validate cleans an owner supplied value for the platform key. An empty value is
// valid and means the link is not configured.
func (r *Registry) Validate(key, raw string) (string, error) {
	p, ok := r.byKey[key]
	if !ok {
		return "", &InvalidValueError{Key: key, Message: "Piattaforma sconosciuta"}
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	if key == "google" {
		if !rePlaceID.MatchString(trimmed) {
			return "", &InvalidValueError{Key: key, Message: fmt.Sprintf(
				`%s: Place ID non valido. Deve iniziare con "ChIJ" seguito da caratteri alfanumerici (es. ChIJN1t_tDeuEmsRUsoyG83frY4)`,
				p.Name)}
		}
		return trimmed, nil
	}

	if p.Prefix != "" {
		handle := strings.TrimPrefix(trimmed, p.Prefix)
		if !reHandle.MatchString(handle) {
			return "", &InvalidValueError{Key: key, Message: fmt.Sprintf(
				"%s: username non valido (solo lettere, numeri, punti e underscore)", p.Name)}
		}
		return handle, nil
	}

	normalized := trimmed
	if !reScheme.MatchString(normalized) {
		normalized = "https://" + normalized
	}
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return "", &InvalidValueError{Key: key, Message: fmt.Sprintf("%s: URL non valido", p.Name)}
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", &InvalidValueError{Key: key, Message: fmt.Sprintf("%s: l'URL deve iniziare con https://", p.Name)}
	}

	if len(p.AllowedDomains) > 0 {
		host := strings.ToLower(u.Hostname())
		for _, domain := range p.AllowedDomains {
			if strings.Contains(host, domain) {
				return normalized, nil
			}
		}
		expected := make([]string, len(p.AllowedDomains))
		for i, d := range p.AllowedDomains {
			expected[i] = strings.TrimSuffix(d, ".")
		}
		return "", &InvalidValueError{Key: key, Message: fmt.Sprintf(
			"%s: l'URL deve essere di %s", p.Name, strings.Join(expected, ", "))}
	}

	return normalized, nil
}

// ValidateAll cleans a whole link configuration, dropping empty values.
func (r *Registry) ValidateAll(links map[string]string) (map[string]string, error) {
	cleaned := make(map[string]string, len(links))
	for _, p := range r.order {
		raw, ok := links[p.Key]
		if !ok {
			continue
		}
		value, err := r.Validate(p.Key, raw)
		if err != nil {
			return nil, err
		}
		if value != "" {
			cleaned[p.Key] = value
		}
	}
	for key := range links {
		if _, ok := r.byKey[key]; !ok {
			return nil, &InvalidValueError{Key: key, Message: "Piattaforma sconosciuta"}
		}
	}
	return cleaned, nil
}
