package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"resumescan/internal/ai"
	resumescanErrors "resumescan/internal/errors"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler provides a comprehensive health check endpoint covering the
// AI model, circuit breaker, database, Redis and TLS certificates
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	timeout := s.getHealthCheckTimeout()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "resumescan",
		"version": s.Version,
	}
	overallHealthy := true

	aiStatus := s.checkAIModelHealth(ctx)
	response["ai_model"] = aiStatus
	if available, ok := aiStatus["available"].(bool); ok && !available {
		overallHealthy = false
	}

	response["circuit_breaker"] = s.checkCircuitBreakerHealth()

	dbStatus := s.checkStoreHealth(ctx)
	response["database"] = dbStatus
	if healthy, ok := dbStatus["healthy"].(bool); ok && !healthy {
		overallHealthy = false
	}

	redisStatus := s.checkCacheHealth(ctx)
	response["redis"] = redisStatus
	if healthy, ok := redisStatus["healthy"].(bool); ok && !healthy {
		overallHealthy = false
	}

	// Check certificate status if certificate manager is available
	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, ok := certStatus["healthy"].(bool); ok && !healthy {
			overallHealthy = false
		}
	}

	if !overallHealthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	writeJSONResponse(w, response)
}

// checkAIModelHealth checks availability of the configured analysis model
func (s *Server) checkAIModelHealth(ctx context.Context) map[string]any {
	analyzeConfig := s.AppConfig.GetAnalyzeConfig()
	aiService, err := ai.NewService(&analyzeConfig, s.Logger)
	if err != nil {
		return map[string]any{
			"available": false,
			"error":     fmt.Sprintf("Failed to create AI service: %v", err),
		}
	}

	return map[string]any{
		"available": true,
		"info":      aiService.GetModelInfo(ctx),
	}
}

// checkCircuitBreakerHealth reports circuit breaker wiring for the analysis path
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	analyzeConfig := s.AppConfig.GetAnalyzeConfig()
	if _, err := ai.NewService(&analyzeConfig, s.Logger); err != nil {
		return map[string]any{
			"available": false,
			"error":     fmt.Sprintf("Failed to create AI service: %v", err),
		}
	}

	return map[string]any{
		"available": true,
		"enabled":   analyzeConfig.CircuitBreaker.Enabled,
	}
}

// checkStoreHealth pings the database
func (s *Server) checkStoreHealth(ctx context.Context) map[string]any {
	if s.DB == nil {
		return map[string]any{"healthy": false, "error": "database not configured"}
	}

	if err := s.DB.Ping(ctx); err != nil {
		return map[string]any{"healthy": false, "error": err.Error()}
	}

	stats := s.DB.Stats()
	return map[string]any{
		"healthy":          true,
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
	}
}

// checkCacheHealth pings Redis
func (s *Server) checkCacheHealth(ctx context.Context) map[string]any {
	if s.Cache == nil {
		return map[string]any{"healthy": false, "error": "redis not configured"}
	}

	if err := s.Cache.Ping(ctx); err != nil {
		return map[string]any{"healthy": false, "error": err.Error()}
	}

	return map[string]any{"healthy": true}
}

// checkCertificateHealth checks the health of TLS certificates
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	// Consider certificates unhealthy if they expire within 24 hours
	criticalThreshold := 24 * time.Hour
	warningThreshold := 7 * 24 * time.Hour

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	certStatus["time_to_expiry"] = timeToExpiry.String()

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
		certStatus["message"] = "Certificate has expired"
	case timeToExpiry <= criticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
		certStatus["message"] = "Certificate expires within 24 hours"
	case timeToExpiry <= warningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
		certStatus["message"] = "Certificate expires within 7 days"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
		certStatus["message"] = "Certificate is valid"
	}

	if s.TLSConfig.AutoReload.Enabled {
		autoReload := map[string]any{"enabled": true}
		if s.CertificateManager.fileWatcher != nil {
			autoReload["file_watcher_running"] = s.CertificateManager.fileWatcher.IsRunning()
			autoReload["watched_files"] = s.CertificateManager.fileWatcher.GetWatchedFiles()
		}
		certStatus["auto_reload"] = autoReload
	} else {
		certStatus["auto_reload"] = map[string]any{"enabled": false}
	}

	metrics := s.CertificateManager.GetMetrics()
	if metrics != nil {
		certStatus["metrics"] = map[string]any{
			"reload_count":         metrics.ReloadCount,
			"reload_success_count": metrics.ReloadSuccessCount,
			"reload_failure_count": metrics.ReloadFailureCount,
			"last_reload_time":     metrics.LastReloadTime,
			"last_reload_success":  metrics.LastReloadSuccess,
			"last_reload_error":    metrics.LastReloadError,
		}
	}

	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumescan",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.DB != nil {
		stats := s.DB.Stats()
		response["database_pool"] = map[string]any{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
		}
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_token":         s.RateLimit.ByToken,
		}
	}

	writeJSONResponse(w, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// parsePageParams reads limit/offset query parameters with sane bounds
func parsePageParams(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// writeJSONResponse writes v as a JSON body
func writeJSONResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// writeAppError maps an application error to an HTTP response, preserving
// the error code so clients can branch on it
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *resumescanErrors.AppError
	if !errors.As(err, &appErr) {
		writeErrorResponse(w, "Internal error", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(appErr.Code))

	response := ErrorResponse{
		Error:   appErr.Message,
		Message: appErr.Message,
		Code:    appErr.Code,
	}
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// statusForCode maps application error codes to HTTP status codes
func statusForCode(code string) int {
	switch code {
	case resumescanErrors.ErrCodeInvalidRequest,
		resumescanErrors.ErrCodeInvalidFormat,
		resumescanErrors.ErrCodeFileNotReadable:
		return http.StatusBadRequest
	case resumescanErrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case resumescanErrors.ErrCodeBadCredentials,
		resumescanErrors.ErrCodeInvalidSession:
		return http.StatusUnauthorized
	case resumescanErrors.ErrCodeForbidden:
		return http.StatusForbidden
	case resumescanErrors.ErrCodeQuotaExhausted:
		return http.StatusPaymentRequired
	case resumescanErrors.ErrCodeUserNotFound,
		resumescanErrors.ErrCodeScanNotFound,
		resumescanErrors.ErrCodeFileNotFound,
		resumescanErrors.ErrCodeNoPendingPayment:
		return http.StatusNotFound
	case resumescanErrors.ErrCodeEmailTaken,
		resumescanErrors.ErrCodeAlreadyVerified:
		return http.StatusConflict
	case resumescanErrors.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
