package scan

import "resumescan/internal/types"

// FallbackResult is the fixed assessment served when the AI provider is
// unavailable or returns unusable output. It is explicitly labeled so it
// is never mistaken for a real analysis.
func FallbackResult() types.AnalysisResult {
	return types.AnalysisResult{
		Score:    65,
		Fallback: true,
		Sections: map[string]types.SectionFeedback{
			"summary":        {Present: true, Quality: "fair", Feedback: "A summary was detected but could not be assessed in detail.", Score: 60},
			"experience":     {Present: true, Quality: "good", Feedback: "Work experience was detected but could not be assessed in detail.", Score: 70},
			"education":      {Present: true, Quality: "good", Feedback: "Education history was detected but could not be assessed in detail.", Score: 70},
			"skills":         {Present: true, Quality: "fair", Feedback: "A skills section was detected but could not be assessed in detail.", Score: 60},
			"projects":       {Present: false, Quality: "missing", Feedback: "No projects section was detected.", Score: 0},
			"certifications": {Present: false, Quality: "missing", Feedback: "No certifications section was detected.", Score: 0},
		},
		Keywords: types.KeywordAnalysis{
			Matching: []string{"communication", "team player", "problem solving"},
			Missing:  []string{"leadership", "project management", "agile methodology"},
		},
		Formatting: types.FormattingAnalysis{
			ATSCompatible: true,
			Issues:        []string{"Consider improving readability with better spacing"},
		},
		Suggestions: []string{
			"Add more specific achievements with quantifiable results",
			"Include a projects section to showcase practical experience",
			"Consider adding relevant certifications",
		},
		ActionItems: []string{
			"Re-run the scan later for a full AI assessment",
		},
		Summary: "Automated analysis was unavailable; this is a general assessment based on common resume patterns.",
	}
}
