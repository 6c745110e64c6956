package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumescan/internal/auth"
	"resumescan/internal/config"
	resumescanErrors "resumescan/internal/errors"
	"resumescan/internal/types"
)

type fakeSessionAuth struct {
	users map[string]*types.User // token -> user
}

func (f *fakeSessionAuth) Signup(ctx context.Context, input auth.SignupInput) (*auth.Session, error) {
	return nil, resumescanErrors.NewAuthError(resumescanErrors.ErrCodeEmailTaken, "Email already registered", nil)
}

func (f *fakeSessionAuth) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	return nil, resumescanErrors.NewAuthError(resumescanErrors.ErrCodeBadCredentials, "Invalid email or password", nil)
}

func (f *fakeSessionAuth) Logout(ctx context.Context, token string) error {
	return nil
}

func (f *fakeSessionAuth) UserFromToken(ctx context.Context, token string) (*types.User, error) {
	if user, ok := f.users[token]; ok {
		return user, nil
	}
	return nil, resumescanErrors.NewAuthError(resumescanErrors.ErrCodeInvalidSession, "Session is expired or unknown", nil)
}

type fakeEntitlements struct {
	ent       types.Entitlement
	forgotten []string
}

func (f *fakeEntitlements) Snapshot(ctx context.Context, userID string) types.Entitlement {
	return f.ent
}

func (f *fakeEntitlements) Fresh(ctx context.Context, userID string) types.Entitlement {
	return f.ent
}

func (f *fakeEntitlements) Forget(userID string) {
	f.forgotten = append(f.forgotten, userID)
}

func newTestServer() *Server {
	return &Server{
		Version:   "test",
		AppConfig: &config.Config{},
		Auth: &fakeSessionAuth{
			users: map[string]*types.User{
				"user-token":  {ID: "u1", Email: "user@example.com", Role: types.RoleUser},
				"admin-token": {ID: "a1", Email: "admin@example.com", Role: types.RoleAdmin},
			},
		},
		Logger: resumescanErrors.NewLogger(slog.LevelError),
	}
}

func TestSessionMiddleware(t *testing.T) {
	s := newTestServer()

	var seenUser *types.User
	handler := s.sessionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		seenUser = userFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUserID string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer user-token",
			wantStatus: http.StatusOK,
			wantUserID: "u1",
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown token",
			authHeader: "Bearer bogus",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = nil
			req := httptest.NewRequest(http.MethodGet, "/entitlement", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUserID != "" {
				if seenUser == nil || seenUser.ID != tt.wantUserID {
					t.Errorf("user in context = %+v, want ID %s", seenUser, tt.wantUserID)
				}
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	s := newTestServer()

	handler := s.sessionMiddleware(s.adminMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "admin allowed", token: "admin-token", wantStatus: http.StatusOK},
		{name: "regular user forbidden", token: "user-token", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/logs", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestLogoutDropsEntitlementSnapshot(t *testing.T) {
	s := newTestServer()
	ents := &fakeEntitlements{}
	s.Entitlements = ents

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()

	s.sessionMiddleware(s.logoutHandler)(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(ents.forgotten) != 1 || ents.forgotten[0] != "u1" {
		t.Errorf("forgotten users = %v, want [u1]", ents.forgotten)
	}
}

func TestWriteAppErrorStatusMapping(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
	}{
		{resumescanErrors.ErrCodeQuotaExhausted, http.StatusPaymentRequired},
		{resumescanErrors.ErrCodeUserNotFound, http.StatusNotFound},
		{resumescanErrors.ErrCodeNoPendingPayment, http.StatusNotFound},
		{resumescanErrors.ErrCodeAlreadyVerified, http.StatusConflict},
		{resumescanErrors.ErrCodeEmailTaken, http.StatusConflict},
		{resumescanErrors.ErrCodeBadCredentials, http.StatusUnauthorized},
		{resumescanErrors.ErrCodeInvalidSession, http.StatusUnauthorized},
		{resumescanErrors.ErrCodeForbidden, http.StatusForbidden},
		{resumescanErrors.ErrCodeFileTooLarge, http.StatusRequestEntityTooLarge},
		{resumescanErrors.ErrCodeInvalidRequest, http.StatusBadRequest},
		{resumescanErrors.ErrCodeStoreUnavailable, http.StatusServiceUnavailable},
		{resumescanErrors.ErrCodeAIServiceFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, resumescanErrors.NewInternalError(tt.code, "boom", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status for %s = %d, want %d", tt.code, rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("error code in body = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestGetRateLimitKey(t *testing.T) {
	tests := []struct {
		name    string
		byToken bool
		byIP    bool
		header  string
		want    string
	}{
		{name: "token preferred", byToken: true, byIP: true, header: "Bearer abc123", want: "token:abc123"},
		{name: "ip fallback", byToken: true, byIP: true, want: "ip:192.0.2.1"},
		{name: "ip only", byToken: false, byIP: true, header: "Bearer abc123", want: "ip:192.0.2.1"},
		{name: "disabled", byToken: false, byIP: false, header: "Bearer abc123", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/scan", nil)
			req.RemoteAddr = "192.0.2.1:4242"
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := getRateLimitKey(req, tt.byToken, tt.byIP); got != tt.want {
				t.Errorf("getRateLimitKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskToken(t *testing.T) {
	if got := maskToken("short"); got != "****" {
		t.Errorf("maskToken(short) = %q", got)
	}
	if got := maskToken("abcdefghijkl"); got != "abcdefgh****" {
		t.Errorf("maskToken(long) = %q", got)
	}
}
