package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	all := r.All()
	require.Len(t, all, 11)

	reviews := 0
	for _, p := range all {
		if p.Category == Review {
			reviews++
		}
	}
	assert.Equal(t, 5, reviews)

	_, ok := r.Lookup("myspace")
	assert.False(t, ok)
}

func TestURL(t *testing.T) {
	r := Default()
	tests := []struct {
		key, value, want string
	}{
		{"google", "ChIJN1t_tDeuEmsRUsoyG83frY4", "https://search.google.com/local/writereview?placeid=ChIJN1t_tDeuEmsRUsoyG83frY4"},
		{"instagram", "trattoria", "https://instagram.com/trattoria"},
		{"tiktok", "trattoria", "https://tiktok.com/@trattoria"},
		{"twitter", "trattoria", "https://x.com/trattoria"},
		{"tripadvisor", "https://www.tripadvisor.it/Restaurant_Review-g1", "https://www.tripadvisor.it/Restaurant_Review-g1"},
	}
	for _, tt := range tests {
		p, ok := r.Lookup(tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.want, p.URL(tt.value), tt.key)
	}
}

func TestValidate(t *testing.T) {
	r := Default()
	tests := []struct {
		name    string
		key     string
		raw     string
		want    string
		wantErr string
	}{
		{name: "empty clears", key: "google", raw: "  ", want: ""},
		{name: "place id", key: "google", raw: " ChIJN1t_tDeuEmsRUsoyG83frY4 ", want: "ChIJN1t_tDeuEmsRUsoyG83frY4"},
		{name: "bad place id", key: "google", raw: "https://maps.google.com", wantErr: "Google: Place ID non valido"},
		{name: "handle strips prefix", key: "instagram", raw: "@trattoria.roma", want: "trattoria.roma"},
		{name: "bad handle", key: "tiktok", raw: "trattoria roma", wantErr: "TikTok: username non valido"},
		{name: "url gets scheme", key: "facebook", raw: "facebook.com/trattoria", want: "https://facebook.com/trattoria"},
		{name: "url keeps http", key: "thefork", raw: "http://www.thefork.it/ristorante/x", want: "http://www.thefork.it/ristorante/x"},
		{name: "wrong domain", key: "tripadvisor", raw: "https://example.com/x", wantErr: "TripAdvisor: l'URL deve essere di tripadvisor"},
		{name: "unknown platform", key: "myspace", raw: "x", wantErr: "Piattaforma sconosciuta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Validate(tt.key, tt.raw)
			if tt.wantErr != "" {
				var invalid *InvalidValueError
				require.ErrorAs(t, err, &invalid)
				assert.Contains(t, invalid.Message, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateAll(t *testing.T) {
	r := Default()

	cleaned, err := r.ValidateAll(map[string]string{
		"instagram": "@trattoria",
		"google":    "",
		"yelp":      "www.yelp.it/biz/trattoria",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"instagram": "trattoria",
		"yelp":      "https://www.yelp.it/biz/trattoria",
	}, cleaned)

	_, err = r.ValidateAll(map[string]string{"myspace": "x"})
	assert.Error(t, err)
}
