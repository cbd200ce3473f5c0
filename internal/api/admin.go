package api

import (
	"errors"
	"net/http"

	"github.com/vibelink/vibelink/internal/store"
)

type AdminWarningPayload struct {
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

// AdminWarningHandler records a warning and pushes it live so a connected
// user sees it immediately.
func (a *Api) AdminWarningHandler(w http.ResponseWriter, r *http.Request) error {
	var payload AdminWarningPayload
	if err := DecodeJson(r.Body, &payload); err != nil {
		return NewApiError("malformed body", http.StatusBadRequest)
	}
	defer r.Body.Close()

	if err := validate.Struct(payload); err != nil {
		return NewApiError(err.Error(), http.StatusUnprocessableEntity)
	}

	err := a.store.SetWarning(r.Context(), payload.Email, payload.Message)
	if errors.Is(err, store.ErrUserNotFound) {
		return NewApiError("user not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	a.presence.PushAdminWarning(payload.Email, payload.Message)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type AdminSuspensionPayload struct {
	Email     string `json:"email" validate:"required,email"`
	Suspended *bool  `json:"suspended" validate:"required"`
}

// AdminSuspensionHandler flips suspension. Lifting one leaves an
// acknowledgement flag the client clears before chatting again.
func (a *Api) AdminSuspensionHandler(w http.ResponseWriter, r *http.Request) error {
	var payload AdminSuspensionPayload
	if err := DecodeJson(r.Body, &payload); err != nil {
		return NewApiError("malformed body", http.StatusBadRequest)
	}
	defer r.Body.Close()

	if err := validate.Struct(payload); err != nil {
		return NewApiError(err.Error(), http.StatusUnprocessableEntity)
	}

	suspended := *payload.Suspended
	err := a.store.SetSuspension(r.Context(), payload.Email, suspended)
	if errors.Is(err, store.ErrUserNotFound) {
		return NewApiError("user not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	a.presence.PushAdminSuspension(payload.Email, suspended, !suspended)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
