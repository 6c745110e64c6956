package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"resumescan/internal/types"
)

func testScan(t *testing.T, analysis types.AnalysisResult) *types.ScanRecord {
	t.Helper()

	raw, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("marshal analysis: %v", err)
	}

	return &types.ScanRecord{
		ID:       "scan-1",
		UserID:   "user-1",
		FileName: "resume.txt",
		FileSize: 2048,
		Score:    analysis.Score,
		ScanResults: raw,
		ScanDate: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestRenderHTML(t *testing.T) {
	analysis := types.AnalysisResult{
		Score: 78,
		Sections: map[string]types.SectionFeedback{
			"summary":    {Present: true, Quality: "good", Feedback: "Clear intro.", Score: 80},
			"experience": {Present: true, Quality: "excellent", Feedback: "Strong history.", Score: 90},
		},
		Keywords: types.KeywordAnalysis{
			Matching: []string{"golang"},
			Missing:  []string{"kubernetes"},
		},
		Formatting:  types.FormattingAnalysis{ATSCompatible: true, Issues: []string{"Dense layout"}},
		Suggestions: []string{"Add metrics to achievements"},
		ActionItems: []string{"Rewrite the summary"},
		Summary:     "Good resume overall.",
	}

	html, err := RenderHTML(testScan(t, analysis))
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}

	out := string(html)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"resume.txt",
		"78 / 100",
		"golang",
		"kubernetes",
		"Dense layout",
		"Add metrics to achievements",
		"Good resume overall.",
		"scan-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q", want)
		}
	}

	if strings.Contains(out, "Automated analysis was unavailable") {
		t.Error("Non-fallback report must not carry the fallback note")
	}
}

func TestRenderHTMLFallbackNote(t *testing.T) {
	analysis := types.AnalysisResult{
		Score:    65,
		Fallback: true,
		Summary:  "General assessment.",
	}

	html, err := RenderHTML(testScan(t, analysis))
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}

	if !strings.Contains(string(html), "Automated analysis was unavailable") {
		t.Error("Fallback report must carry the fallback note")
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	analysis := types.AnalysisResult{
		Score:   50,
		Summary: `<script>alert("x")</script>`,
	}

	html, err := RenderHTML(testScan(t, analysis))
	if err != nil {
		t.Fatalf("RenderHTML returned error: %v", err)
	}

	if strings.Contains(string(html), `<script>alert`) {
		t.Error("User-controlled content must be escaped")
	}
}

func TestRenderHTMLRejectsCorruptResults(t *testing.T) {
	scan := &types.ScanRecord{
		ID:          "scan-2",
		FileName:    "resume.txt",
		ScanResults: json.RawMessage(`{not json`),
		ScanDate:    time.Now(),
	}

	if _, err := RenderHTML(scan); err == nil {
		t.Fatal("Expected error for corrupt stored results")
	}
}
