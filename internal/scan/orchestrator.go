package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"resumescan/internal/ai"
	"resumescan/internal/config"
	"resumescan/internal/errors"
	"resumescan/internal/types"
	"resumescan/internal/utils"
)

// Entitlements is the gate consulted before any quota-consuming action.
// Fresh bypasses any snapshot cache.
type Entitlements interface {
	Fresh(ctx context.Context, userID string) types.Entitlement
}

// Analyzer produces the AI assessment for a resume
type Analyzer interface {
	AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *ai.TokenUsage, error)
}

// Store persists completed scans under the quota guard
type Store interface {
	// SaveScan inserts the record only while the user's scan count is
	// below limit, in a serializable transaction. Returns
	// ErrCodeQuotaExhausted when the guard rejects it. A limit of zero
	// or less disables the guard.
	SaveScan(ctx context.Context, scan *types.ScanRecord, limit int) error
}

// Upload is one resume submission
type Upload struct {
	FileName       string
	FileSize       int64
	Content        []byte
	JobDescription string
}

// Orchestrator runs the full scan flow: entitlement gate, validation,
// AI analysis with fallback, normalization and persistence.
type Orchestrator struct {
	entitlements Entitlements
	analyzer     Analyzer
	store        Store
	appCfg       config.AppConfig
	logger       *errors.Logger
	now          func() time.Time
}

// NewOrchestrator creates the scan orchestrator
func NewOrchestrator(entitlements Entitlements, analyzer Analyzer, store Store, appCfg config.AppConfig, logger *errors.Logger) *Orchestrator {
	return &Orchestrator{
		entitlements: entitlements,
		analyzer:     analyzer,
		store:        store,
		appCfg:       appCfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Result is a completed scan with its normalized analysis
type Result struct {
	Scan     *types.ScanRecord    `json:"scan"`
	Analysis types.AnalysisResult `json:"analysis"`
	Usage    *ai.TokenUsage       `json:"-"`
}

// Run executes one scan for the user. The entitlement check here is
// advisory; the store-level guard is what actually prevents overdraw
// under concurrency.
func (o *Orchestrator) Run(ctx context.Context, userID string, upload Upload) (*Result, error) {
	ent := o.entitlements.Fresh(ctx, userID)
	if ent.RemainingScans <= 0 && !ent.HasSubscription {
		return nil, errors.NewEntitlementError(errors.ErrCodeQuotaExhausted,
			fmt.Sprintf("Scan limit reached (%d of %d used)", ent.ScanLimit, ent.ScanLimit), nil).
			WithContext("tier", ent.Tier)
	}

	resumeText, err := o.validateUpload(upload)
	if err != nil {
		return nil, err
	}

	analysis, usage, err := o.analyzer.AnalyzeResume(ctx, types.AnalyzeResumeInput{
		ResumeText:     resumeText,
		JobDescription: upload.JobDescription,
	})
	if err != nil {
		// Analysis failure never blocks the user; serve the labeled
		// fallback assessment instead
		o.logger.LogError(err, "AI analysis failed, serving fallback result",
			"user_id", userID,
			"file_name", upload.FileName)
		analysis = FallbackResult()
		usage = nil
	}

	o.normalize(&analysis)

	resultJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to encode analysis result", err)
	}

	scan := &types.ScanRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		FileName:       upload.FileName,
		FileSize:       upload.FileSize,
		JobDescription: upload.JobDescription,
		Score:          analysis.Score,
		ScanResults:    resultJSON,
		ScanDate:       o.now(),
	}

	// Active subscribers are not quota-bound; zero disables the store
	// guard so it cannot re-deny them at the insert
	limit := ent.ScanLimit
	if ent.HasSubscription {
		limit = 0
	}

	// Persistence failure is surfaced: an unrecorded scan would not
	// consume quota
	if err := o.store.SaveScan(ctx, scan, limit); err != nil {
		return nil, err
	}

	o.logger.Info("Scan completed",
		"scan_id", scan.ID,
		"user_id", userID,
		"score", analysis.Score,
		"fallback", analysis.Fallback)

	return &Result{Scan: scan, Analysis: analysis, Usage: usage}, nil
}

// validateUpload checks the file constraints and extracts the resume text
func (o *Orchestrator) validateUpload(upload Upload) (string, error) {
	if upload.FileName == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "File name is required", nil)
	}

	if o.appCfg.MaxFileSize > 0 && upload.FileSize > o.appCfg.MaxFileSize {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File exceeds the %s limit", utils.FormatFileSize(o.appCfg.MaxFileSize)), nil)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.FileName)), ".")
	if len(o.appCfg.AllowedFileTypes) > 0 && !slices.Contains(o.appCfg.AllowedFileTypes, ext) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported file type '.%s'. Allowed: %v", ext, o.appCfg.AllowedFileTypes), nil)
	}

	if !utf8.Valid(upload.Content) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"File content is not readable text", nil)
	}

	text := strings.TrimSpace(string(upload.Content))
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Resume content is empty", nil)
	}

	return text, nil
}

// normalize clamps the scores into the configured range and fills any
// section the model skipped
func (o *Orchestrator) normalize(analysis *types.AnalysisResult) {
	analysis.Score = o.clampScore(analysis.Score)

	if analysis.Sections == nil {
		analysis.Sections = make(map[string]types.SectionFeedback, len(types.SectionNames))
	}
	for _, name := range types.SectionNames {
		section, ok := analysis.Sections[name]
		if !ok {
			analysis.Sections[name] = types.SectionFeedback{
				Present:  false,
				Quality:  "missing",
				Feedback: "Not found in the resume.",
				Score:    0,
			}
			continue
		}
		section.Score = o.clampScore(section.Score)
		analysis.Sections[name] = section
	}

	if analysis.Keywords.Matching == nil {
		analysis.Keywords.Matching = []string{}
	}
	if analysis.Keywords.Missing == nil {
		analysis.Keywords.Missing = []string{}
	}
	if analysis.Formatting.Issues == nil {
		analysis.Formatting.Issues = []string{}
	}
	if analysis.Suggestions == nil {
		analysis.Suggestions = []string{}
	}
	if analysis.ActionItems == nil {
		analysis.ActionItems = []string{}
	}
}

func (o *Orchestrator) clampScore(score int) int {
	if score < o.appCfg.MinScore {
		return o.appCfg.MinScore
	}
	if score > o.appCfg.MaxScore {
		return o.appCfg.MaxScore
	}
	return score
}
