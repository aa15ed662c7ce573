package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnstile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "s3cret", r.PostForm.Get("secret"))
		w.Header().Set("content-type", "application/json")
		if r.PostForm.Get("response") == "good" {
			w.Write([]byte(`{"success":true}`))
			return
		}
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	ts := NewTurnstile("s3cret")
	ts.url = srv.URL
	ctx := context.Background()

	ok, err := ts.Verify(ctx, "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ts.Verify(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ts.Verify(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok, "empty token never reaches the api")
}

func TestTurnstileWithoutSecret(t *testing.T) {
	ts := NewTurnstile("")
	assert.False(t, ts.Configured())

	ok, err := ts.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["token"] {
		case "good":
			w.Write([]byte(`{"success":true}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"success":false}`))
		}
	}))
	defer srv.Close()

	ep := NewEndpoint(srv.URL)
	ctx := context.Background()

	ok, err := ep.Verify(ctx, "good")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ep.Verify(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ep.Verify(ctx, "broken")
	assert.Error(t, err)
}
