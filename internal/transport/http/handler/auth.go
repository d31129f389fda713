package handler

import (
	"encoding/json"
	"net/http"

	"github.com/roombook/api/internal/application/auth"
	"github.com/roombook/api/internal/domain"
	"github.com/roombook/api/internal/pkg/validate"
)

// AuthHandler handles the email-code login endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// RequestCode issues a login code and emails it to the user.
// To keep email enumeration cheaper to resist, an unknown address gets the
// same 200 response as a known one; only the rate limiter in front of this
// endpoint tells them apart.
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var body domain.RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_ = h.svc.RequestCode(r.Context(), body.Email)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "if the address is registered, a code has been sent"})
}

// VerifyCode exchanges a valid code for a bearer token.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var body domain.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bearer, user, err := h.svc.VerifyCode(r.Context(), body.Email, body.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: bearer, User: user, Message: "login successful"})
}

// PendingCode reports whether a live code exists for an email, without
// consuming it. Used by the resend UX.
func (h *AuthHandler) PendingCode(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter required")
		return
	}
	writeJSON(w, http.StatusOK, PendingEnvelope{Pending: h.svc.HasPendingCode(r.Context(), email)})
}
