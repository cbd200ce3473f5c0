package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vibelink/vibelink/internal/store"
)

var validate = validator.New()

// SyncUserHandler upserts the identity the auth provider pushes after
// sign-in. It is idempotent; providers retry freely.
func (a *Api) SyncUserHandler(w http.ResponseWriter, r *http.Request) error {
	var payload store.SyncUserInput
	if err := DecodeJson(r.Body, &payload); err != nil {
		return NewApiError("malformed body", http.StatusBadRequest)
	}
	defer r.Body.Close()

	if err := validate.Struct(payload); err != nil {
		return NewApiError(err.Error(), http.StatusUnprocessableEntity)
	}

	if err := a.store.SyncUser(r.Context(), payload); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type UserStatsResponse struct {
	Email                     string `json:"email"`
	Name                      string `json:"name"`
	IsPremium                 bool   `json:"isPremium"`
	IsSuspended               bool   `json:"isSuspended"`
	NeedsUnsuspendAcknowledge bool   `json:"needsUnsuspendAcknowledge"`
	SystemWarning             string `json:"systemWarning,omitempty"`
}

func (a *Api) UserStatsHandler(w http.ResponseWriter, r *http.Request) error {
	u, err := a.store.UserByEmail(r.Context(), chi.URLParam(r, "email"))
	if errors.Is(err, store.ErrUserNotFound) {
		return NewApiError("user not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	return WriteJsonResponse(w, UserStatsResponse{
		Email:                     u.Email,
		Name:                      u.Name,
		IsPremium:                 u.IsPremium,
		IsSuspended:               u.IsSuspended,
		NeedsUnsuspendAcknowledge: u.NeedsUnsuspendAcknowledge,
		SystemWarning:             u.SystemWarning,
	})
}

// ClearWarningHandler dismisses a moderation warning after the user has
// seen it.
func (a *Api) ClearWarningHandler(w http.ResponseWriter, r *http.Request) error {
	if err := a.store.ClearWarning(r.Context(), chi.URLParam(r, "email")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *Api) AcknowledgeUnsuspendHandler(w http.ResponseWriter, r *http.Request) error {
	if err := a.store.AcknowledgeUnsuspend(r.Context(), chi.URLParam(r, "email")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
