package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/taste-review/config"
	"github.com/mbolis/taste-review/database"
	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/session"
)

func sessionHandler(seen *string) http.Handler {
	return Session(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = SessionID(r)
	}))
}

func TestSessionIssuesCookie(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	sessionHandler(&seen).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)
	assert.True(t, session.ValidID(seen))
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
	// a browsing-session cookie
	assert.Zero(t, cookies[0].MaxAge)
	assert.True(t, cookies[0].Expires.IsZero())
}

func TestSessionSecureCookie(t *testing.T) {
	handler := Session(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestSessionKeepsValidCookie(t *testing.T) {
	sid := session.NewID()
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})

	var seen string
	sessionHandler(&seen).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, sid, seen)
}

func TestSessionReplacesForgedCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "../../etc"})

	var seen string
	sessionHandler(&seen).ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "../../etc", seen)
	assert.True(t, session.ValidID(seen))
}

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	assert.Equal(t, http.StatusOK, buf.Status())

	buf.Header().Set("content-type", "application/json")
	buf.WriteHeader(http.StatusCreated)
	buf.WriteHeader(http.StatusTeapot)
	_, err := buf.Write([]byte(`{"ok":true}`))
	require.NoError(t, err)
	assert.True(t, buf.OK())

	rec := httptest.NewRecorder()
	require.NoError(t, buf.Flush(rec))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("content-type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	failed := NewResponseBuffer()
	failed.WriteHeader(http.StatusUnauthorized)
	assert.False(t, failed.OK())
}

func TestLogJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)
	LogJSON(rec, req, http.StatusUnprocessableEntity, log.DebugLevel, "test.code", errors.New("boom"),
		ErrorBody{Error: "Risposta non valida", QuestionID: "q1"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"Risposta non valida","question_id":"q1"}`, rec.Body.String())
}

func TestCredentialsVerifier(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	_, err = database.EnsureOwner(ctx, db, config.Owner{
		Username:       "mario",
		Password:       "pizza",
		RestaurantName: "Da Mario",
		RestaurantSlug: "da-mario",
	})
	require.NoError(t, err)

	cv := CredentialsVerifier(db)
	req := httptest.NewRequest("POST", "/", nil)

	assert.NoError(t, cv.ValidateUser("mario", "pizza", "", req))
	assert.Error(t, cv.ValidateUser("mario", "margherita", "", req))
	assert.Error(t, cv.ValidateUser("luigi", "pizza", "", req))
	assert.Error(t, cv.ValidateClient("client", "secret", "", req))

	claims, err := cv.AddClaims(oauth.UserToken, "mario", "tid", "", req)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, claims[ClaimRoles])
	assert.NotEmpty(t, claims[ClaimRestaurantID])

	require.NoError(t, cv.StoreTokenID(oauth.UserToken, "mario", "tid", "rid"))
	assert.NoError(t, cv.ValidateTokenID(oauth.UserToken, "mario", "tid", "rid"))
	// refresh tokens are single use
	assert.ErrorIs(t, cv.ValidateTokenID(oauth.UserToken, "mario", "tid", "rid"), ErrRefresh)
}
