// Command passgate runs the authentication gateway on an SQLite-backed store
// with all five providers mounted.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/passgate/passgate"
	pgoauth "github.com/passgate/passgate/oauth2"
	gormstore "github.com/passgate/passgate/stores/gorm"
)

type config struct {
	Addr      string `env:"PASSGATE_ADDR" envDefault:":8080"`
	DBPath    string `env:"PASSGATE_DB_PATH" envDefault:"passgate.db"`
	JWTSecret string `env:"PASSGATE_JWT_SECRET,required"`
	JWTIssuer string `env:"PASSGATE_JWT_ISSUER" envDefault:"passgate"`

	// Provider credentials fall back to the OAUTH2_<PROVIDER>_* variables
	// read by the oauth2 package when left empty here.
	GoogleClientID        string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL     string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
	FacebookClientID      string `env:"OAUTH2_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `env:"OAUTH2_FACEBOOK_CLIENT_SECRET"`
	FacebookCallbackURL   string `env:"OAUTH2_FACEBOOK_CALLBACK_URL"`
	GithubClientID        string `env:"OAUTH2_GITHUB_CLIENT_ID"`
	GithubClientSecret    string `env:"OAUTH2_GITHUB_CLIENT_SECRET"`
	GithubCallbackURL     string `env:"OAUTH2_GITHUB_CALLBACK_URL"`
	VkontakteClientID     string `env:"OAUTH2_VKONTAKTE_CLIENT_ID"`
	VkontakteClientSecret string `env:"OAUTH2_VKONTAKTE_CLIENT_SECRET"`
	VkontakteCallbackURL  string `env:"OAUTH2_VKONTAKTE_CALLBACK_URL"`
	TwitterClientID       string `env:"OAUTH2_TWITTER_CLIENT_ID"`
	TwitterClientSecret   string `env:"OAUTH2_TWITTER_CLIENT_SECRET"`
	TwitterCallbackURL    string `env:"OAUTH2_TWITTER_CALLBACK_URL"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{TranslateError: true})
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}

	engine := &passgate.Reconciler{
		Users:  gormstore.NewUserStore(db),
		Hasher: &passgate.PasswordHasher{},
		Issuer: &passgate.TokenIssuer{
			SecretKey: cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
		},
	}

	session := scs.New()
	session.Lifetime = 24 * time.Hour

	gateway := passgate.NewGateway(engine, session).
		RegisterProvider(pgoauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)).
		RegisterProvider(pgoauth.NewFacebook(cfg.FacebookClientID, cfg.FacebookClientSecret, cfg.FacebookCallbackURL)).
		RegisterProvider(pgoauth.NewGithub(cfg.GithubClientID, cfg.GithubClientSecret, cfg.GithubCallbackURL)).
		RegisterProvider(pgoauth.NewVkontakte(cfg.VkontakteClientID, cfg.VkontakteClientSecret, cfg.VkontakteCallbackURL)).
		RegisterProvider(pgoauth.NewTwitter(cfg.TwitterClientID, cfg.TwitterClientSecret, cfg.TwitterCallbackURL))

	slog.Info("passgate listening", "addr", cfg.Addr, "db", cfg.DBPath)
	if err := http.ListenAndServe(cfg.Addr, gateway.Handler()); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
