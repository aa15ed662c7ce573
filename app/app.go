package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mbolis/taste-review/config"
	"github.com/mbolis/taste-review/feedback"
	"github.com/mbolis/taste-review/platform"
	"github.com/mbolis/taste-review/preview"
	"github.com/mbolis/taste-review/session"
	"github.com/mbolis/taste-review/store"
	"github.com/mbolis/taste-review/verify"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Sessions    session.Store
	Loader      *store.Loader
	Forms       *store.Forms
	Submissions *store.Submissions
	Tables      *store.Tables
	// Verifier gates the last question; nil when bot verification is off.
	Verifier  feedback.Verifier
	Turnstile *verify.Turnstile
	Previews  *preview.Issuer
	Platforms *platform.Registry
}

// New wires the stores on db. Sessions, BearerServer and Verifier are left to the caller.
func New(db *sql.DB, cfg config.Config) App {
	return App{
		DB:          db,
		Config:      cfg,
		Loader:      store.NewLoader(db),
		Forms:       store.NewForms(db),
		Submissions: store.NewSubmissions(db),
		Tables:      store.NewTables(db),
		Turnstile:   verify.NewTurnstile(cfg.TurnstileSecret),
		Previews:    preview.NewIssuer(cfg.TokenSecret, cfg.PreviewTTL),
		Platforms:   platform.Default(),
	}
}
