package server

import (
	"net/http"

	"resumescan/internal/auth"
	"resumescan/internal/types"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signupHandler registers an account and returns a session token
func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupInput
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.Auth.Signup(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	s.Logger.Info("Account created",
		"user_id", session.User.ID,
		"client_ip", getClientIP(r))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSONResponse(w, session)
}

// loginHandler opens a session for an existing account
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, session)
}

// logoutHandler revokes the current session token
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := s.Auth.Logout(r.Context(), token); err != nil {
		writeAppError(w, err)
		return
	}

	// The cached entitlement snapshot dies with the session
	s.Entitlements.Forget(userFrom(r.Context()).ID)

	w.WriteHeader(http.StatusNoContent)
}

// entitlementResponse pairs the computed entitlement with the upgrade price label
type entitlementResponse struct {
	types.Entitlement
	PriceLabel string `json:"priceLabel"`
}

// entitlementHandler returns the caller's current entitlement snapshot
func (s *Server) entitlementHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	ent := s.Entitlements.Snapshot(r.Context(), user.ID)

	writeJSONResponse(w, entitlementResponse{
		Entitlement: ent,
		PriceLabel:  s.AppConfig.Entitlement.PriceLabel,
	})
}
