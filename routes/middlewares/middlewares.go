package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/taste-review/httpx"
)

type restaurantKey struct{}

// Owner middleware to check for the 'owner' role in an OAuth token
// and to scope the request to the owner's restaurant.
func Owner(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(TokenCookie, oauth.Authorize(secret, nil), owner).Handler(next)
	}
}

func owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isOwner := false
		if rolesClaim, ok := claims[httpx.ClaimRoles]; ok {
			roles := strings.Split(rolesClaim, ",")
			for _, role := range roles {
				if role == httpx.RoleOwner {
					isOwner = true
					break
				}
			}
		}

		restaurantID := claims[httpx.ClaimRestaurantID]
		if !isOwner || restaurantID == "" {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), restaurantKey{}, restaurantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RestaurantID returns the restaurant of the authenticated owner.
func RestaurantID(r *http.Request) string {
	id, _ := r.Context().Value(restaurantKey{}).(string)
	return id
}

// TokenCookie lets a browser dashboard authenticate with the access_token
// cookie when it sends no authorization header.
func TokenCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") == "" {
			if token, err := r.Cookie("access_token"); err == nil && token.Value != "" {
				r.Header.Set("authorization", "Bearer "+token.Value)
			}
		}
		next.ServeHTTP(w, r)
	})
}
