package scan

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"resumescan/internal/ai"
	"resumescan/internal/config"
	"resumescan/internal/errors"
	"resumescan/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelError)

type fakeEntitlements struct {
	ent types.Entitlement
}

func (f *fakeEntitlements) Fresh(ctx context.Context, userID string) types.Entitlement {
	return f.ent
}

type fakeAnalyzer struct {
	result types.AnalysisResult
	err    error
	calls  int
}

func (f *fakeAnalyzer) AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *ai.TokenUsage, error) {
	f.calls++
	if f.err != nil {
		return types.AnalysisResult{}, nil, f.err
	}
	return f.result, &ai.TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150}, nil
}

type fakeScanStore struct {
	saved   []*types.ScanRecord
	limits  []int
	saveErr error
}

func (f *fakeScanStore) SaveScan(ctx context.Context, scan *types.ScanRecord, limit int) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, scan)
	f.limits = append(f.limits, limit)
	return nil
}

func testAppConfig() config.AppConfig {
	return config.AppConfig{
		MaxFileSize:      5 * 1024 * 1024,
		AllowedFileTypes: []string{"pdf", "doc", "docx", "txt"},
		MinScore:         0,
		MaxScore:         100,
	}
}

func freeEntitlement(remaining int) types.Entitlement {
	return types.Entitlement{
		Tier:           types.TierFree,
		RemainingScans: remaining,
		ScanLimit:      3,
	}
}

func goodAnalysis() types.AnalysisResult {
	return types.AnalysisResult{
		Score: 82,
		Sections: map[string]types.SectionFeedback{
			"summary":        {Present: true, Quality: "good", Feedback: "Clear and concise.", Score: 80},
			"experience":     {Present: true, Quality: "excellent", Feedback: "Strong impact statements.", Score: 92},
			"education":      {Present: true, Quality: "good", Feedback: "Relevant degree listed.", Score: 85},
			"skills":         {Present: true, Quality: "good", Feedback: "Well organized.", Score: 78},
			"projects":       {Present: false, Quality: "missing", Feedback: "Not found.", Score: 0},
			"certifications": {Present: false, Quality: "missing", Feedback: "Not found.", Score: 0},
		},
		Keywords: types.KeywordAnalysis{
			Matching: []string{"golang", "postgres"},
			Missing:  []string{"kubernetes"},
		},
		Formatting:  types.FormattingAnalysis{ATSCompatible: true, Issues: []string{}},
		Suggestions: []string{"Add a projects section"},
		ActionItems: []string{"Quantify achievements"},
		Summary:     "Solid resume with minor gaps.",
	}
}

func validUpload() Upload {
	return Upload{
		FileName:       "resume.txt",
		FileSize:       1024,
		Content:        []byte("Jane Doe\nSoftware Engineer\nExperience: built things."),
		JobDescription: "Backend engineer role",
	}
}

func TestRunSuccessfulScan(t *testing.T) {
	analyzer := &fakeAnalyzer{result: goodAnalysis()}
	store := &fakeScanStore{}
	o := NewOrchestrator(&fakeEntitlements{ent: freeEntitlement(2)}, analyzer, store, testAppConfig(), testLogger)

	result, err := o.Run(context.Background(), "user-1", validUpload())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Analysis.Score != 82 {
		t.Errorf("Score = %d, want 82", result.Analysis.Score)
	}
	if result.Analysis.Fallback {
		t.Error("Successful analysis must not be labeled fallback")
	}
	if result.Scan.UserID != "user-1" {
		t.Errorf("Scan UserID = %q, want user-1", result.Scan.UserID)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 150 {
		t.Error("Expected token usage to be propagated")
	}

	if len(store.saved) != 1 {
		t.Fatalf("Expected 1 persisted scan, got %d", len(store.saved))
	}

	// The persisted JSON must round-trip to the returned analysis
	var persisted types.AnalysisResult
	if err := json.Unmarshal(store.saved[0].ScanResults, &persisted); err != nil {
		t.Fatalf("Persisted scan results are not valid JSON: %v", err)
	}
	if persisted.Score != result.Analysis.Score {
		t.Errorf("Persisted score = %d, want %d", persisted.Score, result.Analysis.Score)
	}
}

func TestRunDeniedWhenQuotaExhausted(t *testing.T) {
	analyzer := &fakeAnalyzer{result: goodAnalysis()}
	store := &fakeScanStore{}
	o := NewOrchestrator(&fakeEntitlements{ent: freeEntitlement(0)}, analyzer, store, testAppConfig(), testLogger)

	_, err := o.Run(context.Background(), "user-1", validUpload())
	if !errors.IsCode(err, errors.ErrCodeQuotaExhausted) {
		t.Fatalf("Expected QUOTA_EXHAUSTED, got %v", err)
	}

	if analyzer.calls != 0 {
		t.Error("Denied scan must not reach the AI provider")
	}
	if len(store.saved) != 0 {
		t.Error("Denied scan must not be persisted")
	}
}

func TestRunAdmitsSubscriberPastScanLimit(t *testing.T) {
	analyzer := &fakeAnalyzer{result: goodAnalysis()}
	store := &fakeScanStore{}
	ent := types.Entitlement{
		Tier:            types.TierPremium,
		RemainingScans:  0,
		ScanLimit:       15,
		HasSubscription: true,
	}
	o := NewOrchestrator(&fakeEntitlements{ent: ent}, analyzer, store, testAppConfig(), testLogger)

	result, err := o.Run(context.Background(), "user-1", validUpload())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Scan == nil {
		t.Fatal("Expected a persisted scan record")
	}
	if len(store.limits) != 1 || store.limits[0] != 0 {
		t.Errorf("SaveScan limit = %v, want [0] so the store guard is disabled", store.limits)
	}
}

func TestRunServesFallbackOnAIFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "provider down", nil)}
	store := &fakeScanStore{}
	o := NewOrchestrator(&fakeEntitlements{ent: freeEntitlement(3)}, analyzer, store, testAppConfig(), testLogger)

	result, err := o.Run(context.Background(), "user-1", validUpload())
	if err != nil {
		t.Fatalf("AI failure must not fail the scan, got %v", err)
	}

	if !result.Analysis.Fallback {
		t.Error("Fallback analysis must be labeled")
	}
	if result.Analysis.Score != 65 {
		t.Errorf("Fallback score = %d, want 65", result.Analysis.Score)
	}
	if result.Usage != nil {
		t.Error("Fallback result must not report token usage")
	}

	// The fallback still consumes quota
	if len(store.saved) != 1 {
		t.Fatalf("Expected fallback scan to be persisted, got %d", len(store.saved))
	}
}

func TestRunSurfacesPersistenceFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{result: goodAnalysis()}
	store := &fakeScanStore{saveErr: errors.NewEntitlementError(errors.ErrCodeQuotaExhausted, "Scan limit reached", nil)}
	o := NewOrchestrator(&fakeEntitlements{ent: freeEntitlement(1)}, analyzer, store, testAppConfig(), testLogger)

	_, err := o.Run(context.Background(), "user-1", validUpload())
	if !errors.IsCode(err, errors.ErrCodeQuotaExhausted) {
		t.Fatalf("Expected store guard error to surface, got %v", err)
	}
}

func TestRunValidatesUpload(t *testing.T) {
	tests := []struct {
		name     string
		upload   Upload
		wantCode string
	}{
		{
			name:     "missing file name",
			upload:   Upload{FileSize: 10, Content: []byte("text")},
			wantCode: errors.ErrCodeInvalidRequest,
		},
		{
			name: "file too large",
			upload: Upload{
				FileName: "resume.pdf",
				FileSize: 50 * 1024 * 1024,
				Content:  []byte("text"),
			},
			wantCode: errors.ErrCodeFileTooLarge,
		},
		{
			name: "unsupported extension",
			upload: Upload{
				FileName: "resume.exe",
				FileSize: 10,
				Content:  []byte("text"),
			},
			wantCode: errors.ErrCodeInvalidFormat,
		},
		{
			name: "empty content",
			upload: Upload{
				FileName: "resume.txt",
				FileSize: 3,
				Content:  []byte("   "),
			},
			wantCode: errors.ErrCodeInvalidRequest,
		},
		{
			name: "binary content",
			upload: Upload{
				FileName: "resume.txt",
				FileSize: 4,
				Content:  []byte{0xff, 0xfe, 0x00, 0x80},
			},
			wantCode: errors.ErrCodeInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{result: goodAnalysis()}
			store := &fakeScanStore{}
			o := NewOrchestrator(&fakeEntitlements{ent: freeEntitlement(3)}, analyzer, store, testAppConfig(), testLogger)

			_, err := o.Run(context.Background(), "user-1", tt.upload)
			if !errors.IsCode(err, tt.wantCode) {
				t.Errorf("Expected %s, got %v", tt.wantCode, err)
			}
			if analyzer.calls != 0 {
				t.Error("Invalid upload must not reach the AI provider")
			}
		})
	}
}

func TestRunNormalizesAnalysis(t *testing.T) {
	// Model output with an out-of-range score, a missing section and nil slices
	sloppy := types.AnalysisResult{
		Score: 140,
		Sections: map[string]types.SectionFeedback{
			"summary": {Present: true, Quality: "good", Feedback: "ok", Score: -10},
		},
		Summary: "ok",
	}

	analyzer := &fakeAnalyzer{result: sloppy}
	store := &fakeScanStore{}
	o := NewOrchestrator(&fakeEntitlements{ent: freeEntitlement(3)}, analyzer, store, testAppConfig(), testLogger)

	result, err := o.Run(context.Background(), "user-1", validUpload())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Analysis.Score != 100 {
		t.Errorf("Score = %d, want clamped to 100", result.Analysis.Score)
	}
	if result.Analysis.Sections["summary"].Score != 0 {
		t.Errorf("Section score = %d, want clamped to 0", result.Analysis.Sections["summary"].Score)
	}

	for _, name := range types.SectionNames {
		section, ok := result.Analysis.Sections[name]
		if !ok {
			t.Errorf("Section %q missing after normalization", name)
			continue
		}
		if name != "summary" && section.Quality != "missing" {
			t.Errorf("Filled section %q quality = %q, want missing", name, section.Quality)
		}
	}

	if result.Analysis.Suggestions == nil || result.Analysis.Keywords.Matching == nil {
		t.Error("Nil slices should be normalized to empty")
	}
}
