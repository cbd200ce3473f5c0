package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/vibelink/vibelink/internal/api"
	"github.com/vibelink/vibelink/internal/config"
	"github.com/vibelink/vibelink/internal/relay"
	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/auth"
	"github.com/vibelink/vibelink/pkg/logger"
	"github.com/vibelink/vibelink/pkg/server"
	"github.com/vibelink/vibelink/pkg/ws"
)

func main() {
	serverCtx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	log := logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		if msg := config.FormatValidationErrors(err); msg != "" {
			log.Error("invalid config:\n" + msg)
		} else {
			log.Error("invalid config", slog.Any("error", err))
		}
		os.Exit(1)
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.SQLite.File)
	if err != nil {
		log.Error("open db", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	goose.SetBaseFS(os.DirFS(cfg.SQLite.Migrations))
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Error("goose dialect", slog.Any("error", err))
		os.Exit(1)
	}
	if err := goose.Up(db, "."); err != nil {
		log.Error("migrate up", slog.Any("error", err))
		os.Exit(1)
	}

	st := store.NewSQLiteStore(db)

	tokenOptions := auth.TokenOptions{
		Exp:    24 * time.Hour,
		Secret: cfg.Auth.Secret,
	}

	hub := ws.New(
		ws.WithLogger(logger.Named(log, "hub")),
		ws.WithBaseContext(serverCtx),
		ws.WithAuthenticator(&ws.TokenAuthenticator{
			Verify: func(token string) (string, error) {
				claims, err := auth.VerifySessionToken(token, tokenOptions)
				if err != nil {
					return "", err
				}
				return claims.SessionID, nil
			},
		}),
	)

	rly := relay.New(relay.Config{
		RequestTTL:   time.Duration(cfg.Relay.RequestTTLSeconds) * time.Second,
		PingLimit:    cfg.Relay.PingLimit,
		ToggleLimit:  cfg.Relay.ToggleLimit,
		EliteEnabled: cfg.Relay.EliteEnabled,
	}, hub, st, relay.WithLogger(logger.Named(log, "relay")))
	rly.Attach(hub)
	hub.Start()

	_api := api.NewApi(st, rly, api.ApiConfig{
		TokenOptions:   tokenOptions,
		AdminKeyHash:   cfg.Auth.AdminKeyHash,
		AllowedOrigins: cfg.AllowedOrigins,
	}, api.WithLogger(logger.Named(log, "api")))

	r := chi.NewRouter()
	r.Mount("/api", _api.Mux())
	r.Handle("/ws", hub)

	srv := server.Server{
		Server: &http.Server{
			Handler: r,
			Addr:    fmt.Sprintf("%s:%d", cfg.Hostname, cfg.Port),
		},
		Logger: log,
		CleanUpFuncs: []func(ctx context.Context){
			func(_ context.Context) {
				rly.Close()
				hub.Close()
				hub.Wait()
			},
		},
	}

	srv.Start(serverCtx)
}
