package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"
)

const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	PreviewTTL  time.Duration

	SessionStore  string
	SessionTTL    time.Duration
	SecureCookies bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TurnstileSiteKey string
	TurnstileSecret  string
	VerifyURL        string

	Owner Owner

	Debug   bool
	LogJSON bool
}

// Owner describes a restaurant owner account created at startup when missing.
type Owner struct {
	Username       string
	Password       string
	RestaurantName string
	RestaurantSlug string
}

func (o Owner) Enabled() bool {
	return o.Username != "" && o.Password != ""
}

func ParseFlags() (Config, error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("taste-review", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	fs.UintVar(&port, "port", 80, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", "tastereview.sqlite", "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", os.Getenv("TASTEREVIEW_TOKEN_SECRET"), "secret key for owner and preview tokens")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", 120, "owner access token TTL in seconds")
	fs.DurationVar(&cfg.PreviewTTL, "preview-ttl", time.Hour, "validity of form preview links")

	fs.StringVar(&cfg.SessionStore, "session-store", SessionMemory, "visitor session backend (memory|redis)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 2*time.Hour, "idle lifetime of a visitor session")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", false, "send the visitor session cookie over HTTPS only")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "redis address for -session-store=redis")
	fs.StringVar(&cfg.RedisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number")

	fs.StringVar(&cfg.TurnstileSiteKey, "turnstile-site-key", os.Getenv("TURNSTILE_SITE_KEY"), "Cloudflare Turnstile site key, enables bot verification")
	fs.StringVar(&cfg.TurnstileSecret, "turnstile-secret", os.Getenv("TURNSTILE_SECRET_KEY"), "Cloudflare Turnstile secret key")
	fs.StringVar(&cfg.VerifyURL, "verify-url", "", "external verification endpoint used instead of calling Turnstile directly")

	fs.StringVar(&cfg.Owner.Username, "owner", "", "owner username to create at startup")
	fs.StringVar(&cfg.Owner.Password, "owner-password", os.Getenv("TASTEREVIEW_OWNER_PASSWORD"), "owner password")
	fs.StringVar(&cfg.Owner.RestaurantName, "owner-restaurant", "", "restaurant name of the created owner")
	fs.StringVar(&cfg.Owner.RestaurantSlug, "owner-slug", "", "restaurant slug of the created owner")

	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "log as JSON")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.SessionStore != SessionMemory && cfg.SessionStore != SessionRedis:
		err = errors.New("parameter -session-store must be memory or redis")
	case cfg.Owner.Enabled() && cfg.Owner.RestaurantSlug == "":
		err = errors.New("missing parameter -owner-slug")
	}

	return
}

// VerificationEnabled reports whether the last question is gated by a bot check.
func (cfg Config) VerificationEnabled() bool {
	return cfg.TurnstileSiteKey != ""
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
