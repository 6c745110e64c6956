package cli

import (
	"fmt"

	"resumescan/internal/ai"
	"resumescan/internal/auth"
	"resumescan/internal/config"
	"resumescan/internal/entitlement"
	"resumescan/internal/payments"
	"resumescan/internal/scan"
	"resumescan/internal/server"
	"resumescan/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resume scanning HTTP server",
	Long: `Start an HTTP server that provides REST API endpoints for resume scanning,
accounts, subscriptions, and payment verification.

Available endpoints:
- POST /auth/signup, /auth/login, /auth/logout: Account and session management
- GET /entitlement: Current scan quota and subscription state
- POST /scan: Upload a resume for analysis
- GET /scans, /scans/{id}, /scans/{id}/report: Scan history and HTML reports
- POST /payments: Submit an M-Pesa payment claim
- POST /admin/payments/verify, GET /admin/logs: Admin console
- GET /health, GET /stats: Health check and server statistics

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

var serveMigrate bool

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Run pending database migrations before serving")

	// Bind flags to viper config keys
	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("server.tls.mode", "tls-mode")
	bindFlag("server.tls.certfile", "cert-file")
	bindFlag("server.tls.keyfile", "key-file")
	bindFlag("server.tls.cafile", "ca-file")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(ctx)
	if err != nil {
		return err
	}

	// Validate TLS configuration after applying overrides
	tempConfig := &config.Config{Server: cfg.Server}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	db, err := store.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()

	if serveMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cache, err := store.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("Failed to close redis client", "error", err)
		}
	}()

	// Repositories
	users := store.NewUserRepository(db.DB)
	scans := store.NewScanRepository(db.DB)
	subscriptions := store.NewSubscriptionRepository(db.DB)
	paymentRecords := store.NewPaymentRepository(db.DB)
	adminLogs := store.NewAdminLogRepository(db.DB)

	// Domain services
	authService := auth.NewService(users, cache.Client, cfg.Server.Session.TTL, logger)

	evaluator := entitlement.NewEvaluator(entitlement.NewStoreView(scans, subscriptions), cfg.Entitlement, logger)
	sessions := entitlement.NewSessionCache(evaluator, cache.Client, logger)
	go sessions.Listen(ctx)

	paymentFlow := payments.NewWorkflow(payments.NewSQLStore(db.DB), cfg.Entitlement, sessions, logger)

	analyzeAIConfig := cfg.GetAnalyzeConfig()
	aiService, err := ai.NewService(&analyzeAIConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	orchestrator := scan.NewOrchestrator(sessions, aiService, scan.NewSQLStore(db.DB), cfg.App, logger)

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	deps := server.Dependencies{
		Auth:          authService,
		Entitlements:  sessions,
		Scans:         orchestrator,
		Payments:      paymentFlow,
		ScanStore:     scans,
		PaymentStore:  paymentRecords,
		AdminLogStore: adminLogs,
		DB:            db,
		Cache:         cache,
	}
	return server.NewServer(cfg, serverCfg, deps, logger).Start()
}
