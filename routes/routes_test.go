package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/config"
	"github.com/mbolis/taste-review/database"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/model"
	"github.com/mbolis/taste-review/session"
	"github.com/mbolis/taste-review/verify"
)

type testEnv struct {
	app    app.App
	server *httptest.Server
	client *http.Client
	form   model.Form
}

func testConfig() config.Config {
	return config.Config{
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
		PreviewTTL:  time.Hour,
		SessionTTL:  time.Hour,
		Owner: config.Owner{
			Username:       "mario",
			Password:       "pizza",
			RestaurantName: "Trattoria da Mario",
			RestaurantSlug: "da-mario",
		},
	}
}

func tableForm(active bool) model.Form {
	return model.Form{
		Name:     "Veloce",
		IsActive: active,
		Questions: []model.Question{
			{Type: model.QuestionSentiment, Label: "Com'è andata?", IsRequired: true},
			{Type: model.QuestionStarRating, Label: "Il cibo", IsRequired: true},
			{Type: model.QuestionOpenText, Label: "Altro?"},
		},
	}
}

func newEnv(t *testing.T, configure func(*app.App)) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = database.EnsureOwner(ctx, db, cfg.Owner)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE restaurants SET social_links = '{"google":"ChIJN1t_tDeuEmsRUsoyG83frY4","instagram":"damario"}'`)
	require.NoError(t, err)

	a := app.New(db, cfg)
	a.BearerServer = httpx.NewBearerServer(db, cfg)
	a.Sessions = session.NewMemory(time.Hour)
	if configure != nil {
		configure(&a)
	}

	restaurant, err := a.Loader.RestaurantBySlug(ctx, "da-mario")
	require.NoError(t, err)
	form, err := a.Forms.Create(ctx, restaurant.ID, tableForm(true))
	require.NoError(t, err)

	server := httptest.NewServer(Wire(a))
	t.Cleanup(server.Close)

	return &testEnv{app: a, server: server, client: newClient(t), form: form}
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, header http.Header) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// only object bodies are returned; the oauth middleware answers with a bare string
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("content-type"), "application/json") {
		var decoded any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		if obj, ok := decoded.(map[string]any); ok {
			out = obj
		}
	}
	return resp, out
}

func (env *testEnv) base() string {
	return "/api/r/da-mario/" + env.form.ID
}

func (env *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, env.app.QueryRow(query, args...).Scan(&n))
	return n
}

func TestFeedbackFlow(t *testing.T) {
	env := newEnv(t, nil)

	resp, _ := env.do(t, "GET", "/r/da-mario/"+env.form.ID+"?t=tavolo-5", nil, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	first := resp.Header.Get("location")
	assert.Equal(t, env.base()+"/q/1?t=tavolo-5", first)

	resp, page := env.do(t, "GET", first, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Trattoria da Mario", page["restaurant"])
	assert.Equal(t, float64(1), page["index"])
	assert.Equal(t, float64(3), page["total"])
	assert.Equal(t, true, page["is_first"])
	assert.Equal(t, env.base()+"/q/1/next?t=tavolo-5", page["next"])
	assert.Nil(t, page["back"])

	resp, tr := env.do(t, "POST", env.base()+"/q/1/next?t=tavolo-5", map[string]any{"value": "great"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "forward", tr["direction"])
	assert.Equal(t, env.base()+"/q/2?t=tavolo-5", tr["location"])

	_, tr = env.do(t, "POST", env.base()+"/q/2/next?t=tavolo-5", map[string]any{"value": 5}, nil)
	assert.Equal(t, env.base()+"/q/3?t=tavolo-5", tr["location"])

	// going back keeps the answer
	_, tr = env.do(t, "POST", env.base()+"/q/2/back?t=tavolo-5", nil, nil)
	assert.Equal(t, "backward", tr["direction"])
	_, page = env.do(t, "GET", tr["location"].(string), nil, nil)
	assert.Equal(t, "great", page["question"].(map[string]any)["value"])

	_, tr = env.do(t, "POST", env.base()+"/q/3/next?t=tavolo-5", map[string]any{"value": nil}, nil)
	assert.Equal(t, env.base()+"/reward", tr["location"])

	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM submissions WHERE table_identifier = 'tavolo-5' AND overall_sentiment = 'great' AND completed_at IS NOT NULL`))
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM answers`))

	// a finished session is sent to the reward
	resp, _ = env.do(t, "GET", env.base()+"/q/1", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, env.base()+"/reward", resp.Header.Get("location"))

	resp, reward := env.do(t, "GET", env.base()+"/reward", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "great", reward["sentiment"])
	assert.Len(t, reward["review_links"], 1)
	assert.Len(t, reward["social_links"], 1)

	// the reward cleared the session: a new visit starts a new submission
	_, tr = env.do(t, "POST", env.base()+"/q/1/next", map[string]any{"value": "bad"}, nil)
	assert.Equal(t, env.base()+"/q/2", tr["location"])
	assert.Equal(t, 2, env.count(t, `SELECT COUNT(*) FROM submissions`))
}

func TestFeedbackValidation(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, "POST", env.base()+"/q/1/next", map[string]any{"value": nil}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Questa domanda è obbligatoria", body["error"])
	assert.Equal(t, env.form.Questions[0].ID, body["question_id"])

	resp, body = env.do(t, "POST", env.base()+"/q/2/next", map[string]any{"value": 9}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Risposta non valida", body["error"])

	resp, body = env.do(t, "POST", env.base()+"/q/3/next", map[string]any{"value": strings.Repeat("a", 501)}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Il testo può contenere al massimo 500 caratteri", body["error"])

	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM submissions`))
}

func TestFeedbackOutOfRange(t *testing.T) {
	env := newEnv(t, nil)

	resp, _ := env.do(t, "GET", env.base()+"/q/0?t=3", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, env.base()+"/q/1?t=3", resp.Header.Get("location"))

	resp, _ = env.do(t, "GET", env.base()+"/q/4", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, env.base()+"/reward", resp.Header.Get("location"))

	// a non-numeric index lands on the first question, an overflowing one past the last
	resp, _ = env.do(t, "GET", env.base()+"/q/abc", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, env.base()+"/q/1", resp.Header.Get("location"))

	resp, _ = env.do(t, "GET", env.base()+"/q/99999999999999999999", nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, env.base()+"/reward", resp.Header.Get("location"))

	resp, _ = env.do(t, "GET", "/api/r/nessuno/"+env.form.ID+"/q/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "GET", "/api/r/da-mario/missing/q/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedbackFormsShareSession(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	_, err := env.app.Exec(`
		INSERT INTO restaurants (id, name, slug, social_links)
		VALUES ('rest-2', 'Da Luigi', 'da-luigi', '{}')`)
	require.NoError(t, err)
	other, err := env.app.Forms.Create(ctx, "rest-2", tableForm(true))
	require.NoError(t, err)
	otherBase := "/api/r/da-luigi/" + other.ID

	env.do(t, "POST", env.base()+"/q/1/next", map[string]any{"value": "great"}, nil)
	_, tr := env.do(t, "POST", otherBase+"/q/1/next", map[string]any{"value": "bad"}, nil)
	assert.Equal(t, otherBase+"/q/2", tr["location"])

	// each form keeps its own submission and answers in the one cookie session
	resp, page := env.do(t, "GET", env.base()+"/q/1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "great", page["question"].(map[string]any)["value"])
	_, page = env.do(t, "GET", otherBase+"/q/1", nil, nil)
	assert.Equal(t, "bad", page["question"].(map[string]any)["value"])

	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM submissions WHERE form_id = ? AND overall_sentiment = 'great'`, env.form.ID))
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM submissions WHERE form_id = ? AND overall_sentiment = 'bad'`, other.ID))
}

func TestFeedbackPreview(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()
	draft, err := env.app.Forms.Create(ctx, env.form.RestaurantID, tableForm(false))
	require.NoError(t, err)
	base := "/api/r/da-mario/" + draft.ID

	// the new draft did not deactivate anything, and is hidden without a token
	resp, _ := env.do(t, "GET", base+"/q/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, "GET", base+"/q/1?preview=forged", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	token, _, err := env.app.Previews.Issue(draft.ID)
	require.NoError(t, err)
	q := "?preview=" + token

	resp, page := env.do(t, "GET", base+"/q/1"+q, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, page["preview"])

	_, tr := env.do(t, "POST", base+"/q/1/next"+q, map[string]any{"value": "ok"}, nil)
	assert.Equal(t, base+"/q/2"+q, tr["location"])
	_, tr = env.do(t, "POST", base+"/q/2/back"+q, nil, nil)
	_, page = env.do(t, "GET", tr["location"].(string), nil, nil)
	assert.Equal(t, "ok", page["question"].(map[string]any)["value"])

	_, tr = env.do(t, "POST", base+"/q/2/next"+q, map[string]any{"value": 2}, nil)
	_, tr = env.do(t, "POST", base+"/q/3/next"+q, map[string]any{"value": "prova"}, nil)
	assert.Equal(t, base+"/reward"+q, tr["location"])

	resp, reward := env.do(t, "GET", tr["location"].(string), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, reward["review_links"])

	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM submissions`))

	// a token for one form does not open another
	resp, _ = env.do(t, "GET", env.base()+"/q/1"+q, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFeedbackVerification(t *testing.T) {
	verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": req["token"] == "human"})
	}))
	t.Cleanup(verifier.Close)

	env := newEnv(t, func(a *app.App) {
		a.TurnstileSiteKey = "site-key"
		a.Verifier = verify.NewEndpoint(verifier.URL)
	})

	_, page := env.do(t, "GET", env.base()+"/q/3", nil, nil)
	assert.Equal(t, true, page["needs_verification"])
	assert.Equal(t, "site-key", page["turnstile_site_key"])

	env.do(t, "POST", env.base()+"/q/1/next", map[string]any{"value": "ok"}, nil)
	env.do(t, "POST", env.base()+"/q/2/next", map[string]any{"value": 4}, nil)

	resp, body := env.do(t, "POST", env.base()+"/q/3/next", map[string]any{"value": "bene"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Verifica di sicurezza in corso. Attendi un momento.", body["error"])

	resp, body = env.do(t, "POST", env.base()+"/q/3/next", map[string]any{"value": "bene", "verification_token": "bot"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Verifica di sicurezza fallita. Riprova.", body["error"])
	assert.Zero(t, env.count(t, `SELECT COUNT(*) FROM submissions WHERE completed_at IS NOT NULL`))

	resp, body = env.do(t, "POST", env.base()+"/q/3/next", map[string]any{"value": "bene", "verification_token": "human"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, env.base()+"/reward", body["location"])
	assert.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM submissions WHERE completed_at IS NOT NULL`))
}

func TestVerifyTurnstileWithoutSecret(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, "POST", "/api/verify-turnstile", map[string]any{"token": "anything"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, _ = env.do(t, "POST", "/api/verify-turnstile", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	env := newEnv(t, nil)
	env.do(t, "POST", env.base()+"/q/1/next", map[string]any{"value": "ok"}, nil)

	resp, err := env.client.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tastereview_submissions_created_total")
}

func decodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
