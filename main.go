package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/config"
	"github.com/mbolis/taste-review/database"
	"github.com/mbolis/taste-review/feedback"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/routes"
	"github.com/mbolis/taste-review/session"
	"github.com/mbolis/taste-review/verify"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	log.Configure(cfg.Debug, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.Owner.Enabled() {
		created, err := database.EnsureOwner(ctx, db, cfg.Owner)
		if err != nil {
			log.Fatal("main.db.owner:", err)
		}
		if created {
			log.WithFields(log.Fields{"owner": cfg.Owner.Username, "slug": cfg.Owner.RestaurantSlug}).Info("owner created")
		}
	}

	app := app.New(db, cfg)
	app.BearerServer = httpx.NewBearerServer(db, cfg)
	app.Verifier = verifier(cfg)

	app.Sessions, err = sessions(ctx, cfg)
	if err != nil {
		log.Fatal("main.sessions:", err)
	}

	handler := routes.Wire(app)

	err = runServer(ctx, cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func sessions(ctx context.Context, cfg config.Config) (session.Store, error) {
	if cfg.SessionStore == config.SessionRedis {
		rdb, err := session.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		log.Info("visitor sessions on redis at " + cfg.RedisAddr)
		return session.NewRedis(rdb, cfg.SessionTTL), nil
	}

	mem := session.NewMemory(cfg.SessionTTL)
	go mem.RunJanitor(ctx, time.Minute)
	return mem, nil
}

// verifier returns nil when the last question is not gated.
func verifier(cfg config.Config) feedback.Verifier {
	switch {
	case !cfg.VerificationEnabled():
		return nil
	case cfg.VerifyURL != "":
		return verify.NewEndpoint(cfg.VerifyURL)
	default:
		if cfg.TurnstileSecret == "" {
			log.Warn("main.verifier: no turnstile secret, every token passes")
		}
		return verify.NewTurnstile(cfg.TurnstileSecret)
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Error("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
