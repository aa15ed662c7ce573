package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/log"
)

type verifyRequest struct {
	Token string `json:"token"`
}

// VerifyTurnstile checks a widget token for a client that wants to know before
// submitting. Without a configured secret every token passes.
func VerifyTurnstile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := verifyRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil || req.Token == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "verify.parse_body")
			return
		}

		ok, err := app.Turnstile.Verify(r.Context(), req.Token)
		if err != nil {
			log.WithError(err).Warn("verify.turnstile")
			render.Status(r, http.StatusBadGateway)
		}
		render.JSON(w, r, map[string]any{
			"success": ok && err == nil,
		})
	}
}
