package handler

import (
	"net/http"

	"github.com/roombook/api/internal/transport/http/middleware"
)

// SessionHandler handles session endpoints.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler { return &SessionHandler{} }

// GetCurrent returns the identity of the authenticated caller, taken from
// the verified token claims. There is no server-side session record; the
// bearer token is the session.
func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	})
}
