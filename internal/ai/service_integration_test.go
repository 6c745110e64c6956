package ai

import (
	"log/slog"
	"testing"
	"time"

	"resumescan/internal/config"
	"resumescan/internal/errors"
)

// Helper functions to create pointers for test values
func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }
func boolPtr(b bool) *bool                   { return &b }

var testLogger = errors.NewLogger(slog.LevelDebug)

// TestAnalyzeConfigDerivation verifies that the operation config handed to
// providers carries the values from the ai section of the configuration.
func TestAnalyzeConfigDerivation(t *testing.T) {
	testConfig := &config.Config{
		AI: config.AIConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			Timeout:          75 * time.Second,
			APIKey:           "configured-api-key",
			MaxRetries:       2,
			Temperature:      0.2,
			UseSystemPrompts: true,
			CircuitBreaker: config.CircuitBreakerConfig{
				Enabled:          true,
				MaxRequests:      3,
				Interval:         60 * time.Second,
				Timeout:          60 * time.Second,
				MinRequests:      3,
				FailureThreshold: 0.6,
			},
		},
	}

	cfg := testConfig.GetAnalyzeConfig()

	if cfg.Provider != "gemini" {
		t.Errorf("Expected provider 'gemini', got '%s'", cfg.Provider)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("Expected model 'gemini-2.0-flash', got '%s'", cfg.Model)
	}
	if cfg.APIKey != "configured-api-key" {
		t.Errorf("Expected API key 'configured-api-key', got '%s'", cfg.APIKey)
	}
	if cfg.Timeout == nil || *cfg.Timeout != 75*time.Second {
		t.Errorf("Expected timeout 75s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries == nil || *cfg.MaxRetries != 2 {
		t.Errorf("Expected max retries 2, got %v", cfg.MaxRetries)
	}
	if cfg.Temperature == nil || *cfg.Temperature != float32(0.2) {
		t.Errorf("Expected temperature 0.2, got %v", cfg.Temperature)
	}
	if cfg.UseSystemPrompts == nil || !*cfg.UseSystemPrompts {
		t.Error("Expected useSystemPrompts to be true")
	}
	if !cfg.CircuitBreaker.Enabled {
		t.Error("Expected circuit breaker to be enabled")
	}
}

func TestUnsupportedProvider(t *testing.T) {
	cfg := &config.OperationAIConfig{
		Provider:         "nonexistent",
		Model:            "test-model",
		Timeout:          timePtr(30 * time.Second),
		MaxRetries:       intPtr(1),
		Temperature:      float32Ptr(0.5),
		UseSystemPrompts: boolPtr(true),
	}

	if _, err := NewService(cfg, testLogger); err == nil {
		t.Fatal("Expected error for unsupported provider")
	}
}

func TestCircuitBreakerIntegrationWithService(t *testing.T) {
	testOpConfig := &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "test-model",
		Timeout:          timePtr(30 * time.Second),
		APIKey:           "test-key",
		MaxRetries:       intPtr(1),
		Temperature:      float32Ptr(0.5),
		UseSystemPrompts: boolPtr(true),
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          45 * time.Second,
			MinRequests:      2,
			FailureThreshold: 0.8,
		},
	}

	service, err := NewService(testOpConfig, testLogger)
	if err != nil {
		t.Skipf("Could not create service with test key: %v", err)
	}

	if service.config.CircuitBreaker.MaxRequests != 5 {
		t.Errorf("Expected circuit breaker max requests 5, got %d", service.config.CircuitBreaker.MaxRequests)
	}
	if service.config.CircuitBreaker.FailureThreshold != 0.8 {
		t.Errorf("Expected circuit breaker failure threshold 0.8, got %f", service.config.CircuitBreaker.FailureThreshold)
	}

	geminiProvider, ok := service.Provider.(*GeminiProvider)
	if !ok {
		t.Fatal("Service provider is not of type *GeminiProvider")
	}

	stats := geminiProvider.GetCircuitBreakerStats()

	aiOpsStats, ok := stats["ai_operations"].(map[string]any)
	if !ok {
		t.Fatal("AI operations stats should exist and be a map")
	}
	if name, _ := aiOpsStats["name"].(string); name != "AI-analyze" {
		t.Errorf("Expected circuit breaker name 'AI-analyze', got '%s'", name)
	}

	modelOpsStats, ok := stats["model_operations"].(map[string]any)
	if !ok {
		t.Fatal("Model operations stats should exist and be a map")
	}
	if name, _ := modelOpsStats["name"].(string); name != "AI-Model-analyze" {
		t.Errorf("Expected model circuit breaker name 'AI-Model-analyze', got '%s'", name)
	}

	if overallHealthy, _ := stats["overall_healthy"].(bool); !overallHealthy {
		t.Error("Circuit breaker should be healthy initially")
	}
}
