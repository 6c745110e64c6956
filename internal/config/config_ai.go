package config

import "time"

// GetAnalyzeConfig returns the resolved AI configuration for the resume
// analysis operation. All values come from the single ai section; the
// pointer fields exist so providers can distinguish configured values from
// unset ones.
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	timeout := c.AI.Timeout
	maxRetries := c.AI.MaxRetries
	temperature := c.AI.Temperature
	useSystemPrompts := c.AI.UseSystemPrompts

	return OperationAIConfig{
		Provider:         c.AI.Provider,
		Model:            c.AI.Model,
		Timeout:          &timeout,
		APIKey:           c.AI.APIKey,
		MaxRetries:       &maxRetries,
		Temperature:      &temperature,
		UseSystemPrompts: &useSystemPrompts,
		CustomPrompts:    c.AI.CustomPrompts,
		CircuitBreaker:   c.AI.CircuitBreaker,
	}
}

// AIModelCheckTimeout returns the configured timeout for model availability
// probes from the health check.
func (c *Config) AIModelCheckTimeout() time.Duration {
	return c.Observability.HealthCheck.AIModelCheckTimeout
}
