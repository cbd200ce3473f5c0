// Package api exposes the small HTTP surface around the realtime relay:
// presence and stats reads, auth-provider user sync, session token minting,
// and the moderation endpoints.
package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/cors"

	"github.com/vibelink/vibelink/internal/store"
	"github.com/vibelink/vibelink/pkg/auth"
	"github.com/vibelink/vibelink/pkg/wire"
)

// Presence is the slice of the relay the API reads from and pushes
// moderation events through.
type Presence interface {
	Roster() []wire.PresenceRecord
	PushAdminWarning(email, message string)
	PushAdminSuspension(email string, suspended, needsAck bool)
}

type ApiConfig struct {
	TokenOptions   auth.TokenOptions
	AdminKeyHash   string
	AllowedOrigins []string
}

type Api struct {
	store    *store.SQLiteStore
	presence Presence
	mux      *ApiMux
	config   ApiConfig
	logger   *slog.Logger
}

func NewApi(st *store.SQLiteStore, presence Presence, config ApiConfig, opts ...ApiOption) *Api {
	a := &Api{
		store:    st,
		presence: presence,
		config:   config,
		logger: slog.New(slog.NewJSONHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.mux = NewApiMux(a.logger)
	a.mountHandlers()
	return a
}

type ApiOption func(*Api)

func WithLogger(logger *slog.Logger) ApiOption {
	return func(a *Api) { a.logger = logger }
}

func (a *Api) Mux() http.Handler {
	return a.mux
}

func (a *Api) mountHandlers() {
	a.mux.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Admin-Key"},
	}))

	a.mux.Get("/activeusers", a.ActiveUsersHandler)
	a.mux.Get("/global-stats/monthly", a.MonthlyStatsHandler)

	a.mux.Post("/session", a.SessionHandler)
	a.mux.Post("/sync-user", a.SyncUserHandler)

	a.mux.Route("/user-stats", func(r *ApiMux) {
		r.Get("/{email}", a.UserStatsHandler)
		r.Post("/{email}/clear-warning", a.ClearWarningHandler)
		r.Post("/{email}/acknowledge-unsuspend", a.AcknowledgeUnsuspendHandler)
	})

	a.mux.Route("/admin", func(r *ApiMux) {
		r.Post("/warning", a.adminOnly(a.AdminWarningHandler))
		r.Post("/suspension", a.adminOnly(a.AdminSuspensionHandler))
	})
}

// adminOnly guards moderation endpoints with the shared admin key, checked
// against its bcrypt hash from config.
func (a *Api) adminOnly(next ApiHandleFunc) ApiHandleFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		key := r.Header.Get("X-Admin-Key")
		if key == "" {
			return NewApiError("missing admin key", http.StatusUnauthorized)
		}
		if err := auth.CheckAdminKey(a.config.AdminKeyHash, key); err != nil {
			return NewApiError("bad admin key", http.StatusForbidden)
		}
		return next(w, r)
	}
}
