package handler

import (
	"net/http"

	"github.com/picstore/picstore/internal/action"
	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/auth"
	"github.com/picstore/picstore/internal/record"
	"github.com/picstore/picstore/internal/server/middleware"
)

// SessionHandler serves login, token refresh and logout.
type SessionHandler struct {
	actions *action.Actions
	tokens  *auth.Service
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(actions *action.Actions, tokens *auth.Service) *SessionHandler {
	return &SessionHandler{actions: actions, tokens: tokens}
}

// Login exchanges credentials for a token pair, replacing any previously
// stored pair for that user.
// POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.GetBearerToken(r.Context()) != "" {
		writeErr(w, &apierr.Error{
			ID:      "UnauthorizedError",
			Message: "Invalid permissions",
			Status:  http.StatusForbidden,
			Info:    "You are already logged in",
		})
		return
	}
	creds, err := decodeRecord(r, record.Credentials)
	if err != nil {
		writeErr(w, err)
		return
	}
	pair, err := h.actions.Login(r.Context(), h.tokens, creds)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh mints a fresh auth token from a valid, stored refresh token.
// POST /api/v1/session/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRecord(r, record.RefreshRequest)
	if err != nil {
		writeErr(w, err)
		return
	}
	refreshToken, ok := req.Get("refresh_token")
	if !ok {
		writeErr(w, apierr.InvalidParams("Refresh token missing"))
		return
	}
	authToken, err := h.tokens.Refresh(r.Context(), refreshToken.(string))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_token": authToken})
}

// Logout revokes the caller's stored tokens.
// DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetBearerToken(r.Context())
	if token == "" {
		writeErr(w, apierr.InvalidAuthToken("No token supplied"))
		return
	}
	userID, _, err := h.tokens.Verify(r.Context(), token)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.tokens.Revoke(r.Context(), userID); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, "Logged out")
}
