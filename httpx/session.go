package httpx

import (
	"context"
	"net/http"

	"github.com/mbolis/taste-review/session"
)

const SessionCookie = "tr_session"

type sessionKey struct{}

// Session makes sure every request carries a visitor session id, issuing a
// cookie when the visitor has none or an unreadable one. The cookie has no
// expiry, so it ends with the browsing session; the server side entries expire
// on their own TTL. secure marks the cookie for HTTPS only.
func Session(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if c, err := r.Cookie(SessionCookie); err == nil && session.ValidID(c.Value) {
				sid = c.Value
			} else {
				sid = session.NewID()
			}

			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     SessionCookie,
				Value:    sid,
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), sessionKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the id set by the Session middleware.
func SessionID(r *http.Request) string {
	sid, _ := r.Context().Value(sessionKey{}).(string)
	return sid
}
