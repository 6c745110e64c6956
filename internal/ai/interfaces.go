package ai

import (
	"context"

	"resumescan/internal/types"
)

// AIProvider interface for different AI implementations.
// AnalyzeResume returns token usage information - callers can ignore it if not needed
type AIProvider interface {
	AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
