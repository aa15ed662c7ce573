package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/routes/middlewares"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	root.Handle("/metrics", promhttp.Handler())

	root.With(httpx.Session(app.SecureCookies)).Get("/r/{slug}/{form}", StartFeedback(app))
	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Route("/r/{slug}/{form}", func(r chi.Router) {
		r.Use(httpx.Session(app.SecureCookies))

		r.Get("/q/{index}", GetQuestion(app))
		r.Post("/q/{index}/next", NextQuestion(app))
		r.Post("/q/{index}/back", PreviousQuestion(app))
		r.Get("/reward", GetReward(app))
	})
	api.Post("/verify-turnstile", VerifyTurnstile(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Owner(app.TokenSecret))

		r.Get("/restaurant", GetRestaurant(app))
		r.Put("/restaurant", UpdateRestaurant(app))
		r.Get("/platforms", ListPlatforms(app))
		r.Get("/templates", ListTemplates(app))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetFormById(app))
		r.Put("/forms/{id}", UpdateForm(app))
		r.Delete("/forms/{id}", DeleteForm(app))

		r.Get("/forms/{id}/submissions", GetFormSubmissions(app))
		r.Get("/forms/{id}/stats", GetFormStats(app))
		r.Post("/forms/{id}/preview", CreatePreview(app))

		r.Get("/tables", ListTables(app))
		r.Post("/tables", CreateTable(app))
		r.Delete("/tables/{id}", DeleteTable(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
