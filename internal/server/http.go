package server

import (
	"context"
	"time"

	"resumescan/internal/auth"
	"resumescan/internal/config"
	resumescanErrors "resumescan/internal/errors"
	"resumescan/internal/payments"
	"resumescan/internal/scan"
	"resumescan/internal/store"
	"resumescan/internal/types"
)

// SessionAuth resolves bearer tokens to users and manages sessions
type SessionAuth interface {
	Signup(ctx context.Context, input auth.SignupInput) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
	UserFromToken(ctx context.Context, token string) (*types.User, error)
}

// EntitlementSource provides per-user entitlement snapshots
type EntitlementSource interface {
	Snapshot(ctx context.Context, userID string) types.Entitlement
	Fresh(ctx context.Context, userID string) types.Entitlement
	// Forget drops any cached snapshot for the user, called on logout
	Forget(userID string)
}

// ScanRunner executes one resume scan end to end
type ScanRunner interface {
	Run(ctx context.Context, userID string, upload scan.Upload) (*scan.Result, error)
}

// PaymentDesk accepts payment claims and verifies them
type PaymentDesk interface {
	Submit(ctx context.Context, userID string, input payments.SubmitInput) (*types.PaymentRecord, error)
	Verify(ctx context.Context, adminEmail, targetEmail string) (*payments.VerifyResult, error)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Server holds configuration and dependencies for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// Domain services
	Auth         SessionAuth
	Entitlements EntitlementSource
	Scans        ScanRunner
	Payments     PaymentDesk

	// Read-side repositories
	ScanStore     store.ScanRepository
	PaymentStore  store.PaymentRepository
	AdminLogStore store.AdminLogRepository

	// Backing stores, used by health and stats
	DB    *store.Database
	Cache *store.Redis

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *resumescanErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
// (Refactored to reduce long parameter list in NewServer)
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Dependencies holds the domain services and stores the server fronts
type Dependencies struct {
	Auth          SessionAuth
	Entitlements  EntitlementSource
	Scans         ScanRunner
	Payments      PaymentDesk
	ScanStore     store.ScanRepository
	PaymentStore  store.PaymentRepository
	AdminLogStore store.AdminLogRepository
	DB            *store.Database
	Cache         *store.Redis
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *resumescanErrors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		Auth:           deps.Auth,
		Entitlements:   deps.Entitlements,
		Scans:          deps.Scans,
		Payments:       deps.Payments,
		ScanStore:      deps.ScanStore,
		PaymentStore:   deps.PaymentStore,
		AdminLogStore:  deps.AdminLogStore,
		DB:             deps.DB,
		Cache:          deps.Cache,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
