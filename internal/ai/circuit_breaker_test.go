package ai

import (
	"errors"
	"testing"
	"time"

	"resumescan/internal/config"

	"google.golang.org/genai"
)

func testBreakerConfig(enabled bool) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}
}

func TestCircuitBreakerCreation(t *testing.T) {
	cb := NewAICircuitBreaker("analyze", testBreakerConfig(true), nil)
	if cb == nil {
		t.Fatal("Circuit breaker should not be nil when enabled")
	}

	stats := cb.GetStats()

	name, ok := stats["name"].(string)
	if !ok {
		t.Fatal("Circuit breaker name not found")
	}
	if name != "AI-analyze" {
		t.Errorf("Expected circuit breaker name 'AI-analyze', got '%s'", name)
	}

	state, ok := stats["state"].(string)
	if !ok {
		t.Fatal("Circuit breaker state not found")
	}
	if state != "closed" {
		t.Errorf("Expected initial state 'closed', got '%s'", state)
	}

	enabled, ok := stats["enabled"].(bool)
	if !ok {
		t.Fatal("Circuit breaker enabled status not found")
	}
	if !enabled {
		t.Error("Circuit breaker should be enabled")
	}

	if !cb.IsHealthy() {
		t.Error("Circuit breaker should be healthy initially")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewAICircuitBreaker("analyze", testBreakerConfig(false), nil)

	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker still executes the wrapped function directly
	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Execute on disabled breaker returned error: %v", err)
	}
	if !called {
		t.Error("Execute on disabled breaker should call the function")
	}

	if !cb.IsHealthy() {
		t.Error("Disabled circuit breaker should report healthy")
	}

	stats := cb.GetStats()
	if enabled, _ := stats["enabled"].(bool); enabled {
		t.Error("Disabled circuit breaker stats should report enabled=false")
	}
}

func TestCircuitBreakerPassesThroughErrors(t *testing.T) {
	cb := NewAICircuitBreaker("analyze", testBreakerConfig(true), nil)

	wantErr := errors.New("upstream unavailable")
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected error %v, got %v", wantErr, err)
	}

	// One failure below the minimum request count must not trip the breaker
	if !cb.IsHealthy() {
		t.Error("Circuit breaker should remain closed after a single failure")
	}
}

func TestModelCircuitBreaker(t *testing.T) {
	mb := NewModelCircuitBreaker("analyze", testBreakerConfig(true), nil)
	if mb == nil {
		t.Fatal("Model circuit breaker should not be nil when enabled")
	}

	stats := mb.GetModelStats()
	name, ok := stats["name"].(string)
	if !ok {
		t.Fatal("Model circuit breaker name not found")
	}
	if name != "AI-Model-analyze" {
		t.Errorf("Expected circuit breaker name 'AI-Model-analyze', got '%s'", name)
	}

	if !mb.IsModelHealthy() {
		t.Error("Model circuit breaker should be healthy initially")
	}
}
