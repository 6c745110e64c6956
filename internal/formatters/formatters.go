package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumescan/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResult", &AnalysisMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return "AnalysisResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// orderedSections yields the report sections in a stable display order,
// appending any extra sections the model returned that are not in the
// canonical list.
func orderedSections(sections map[string]types.SectionFeedback) []string {
	names := make([]string, 0, len(sections))
	seen := make(map[string]bool, len(sections))
	for _, name := range types.SectionNames {
		if _, ok := sections[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	for name := range sections {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// AnalysisTextFormatter handles text formatting for scan results
type AnalysisTextFormatter struct{}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== RESUME SCAN REPORT ===\n\n")
	output.WriteString(fmt.Sprintf("Overall ATS Score: %d/100\n", result.Score))
	if result.Fallback {
		output.WriteString("Note: generated without AI assistance; scores are heuristic.\n")
	}
	output.WriteString("\nSummary:\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")

	output.WriteString("=== SECTIONS ===\n")
	for _, name := range orderedSections(result.Sections) {
		section := result.Sections[name]
		output.WriteString(fmt.Sprintf("\n%s (%s, %d/100)\n", titleCase(name), section.Quality, section.Score))
		output.WriteString(section.Feedback)
		output.WriteString("\n")
	}
	output.WriteString("\n")

	output.WriteString("=== KEYWORDS ===\n")
	if len(result.Keywords.Matching) > 0 {
		output.WriteString("Matching:\n")
		for _, kw := range result.Keywords.Matching {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
	}
	if len(result.Keywords.Missing) > 0 {
		output.WriteString("Missing:\n")
		for _, kw := range result.Keywords.Missing {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
	}
	output.WriteString("\n")

	output.WriteString("=== FORMATTING ===\n")
	if result.Formatting.ATSCompatible {
		output.WriteString("ATS compatible: yes\n")
	} else {
		output.WriteString("ATS compatible: no\n")
	}
	for _, issue := range result.Formatting.Issues {
		output.WriteString(fmt.Sprintf("- %s\n", issue))
	}
	output.WriteString("\n")

	if len(result.Suggestions) > 0 {
		output.WriteString("=== SUGGESTIONS ===\n")
		for _, suggestion := range result.Suggestions {
			output.WriteString(fmt.Sprintf("- %s\n", suggestion))
		}
		output.WriteString("\n")
	}

	if len(result.ActionItems) > 0 {
		output.WriteString("=== ACTION ITEMS ===\n")
		for i, item := range result.ActionItems {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
		}
	}

	return output.String(), nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

// AnalysisMarkdownFormatter handles markdown formatting for scan results
type AnalysisMarkdownFormatter struct{}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Resume Scan Report\n\n")
	output.WriteString(fmt.Sprintf("**Overall ATS Score:** %d/100\n\n", result.Score))
	if result.Fallback {
		output.WriteString("> Generated without AI assistance; scores are heuristic.\n\n")
	}
	output.WriteString("## Summary\n\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")

	output.WriteString("## Sections\n\n")
	for _, name := range orderedSections(result.Sections) {
		section := result.Sections[name]
		output.WriteString(fmt.Sprintf("### %s\n\n", titleCase(name)))
		output.WriteString(fmt.Sprintf("**Quality:** %s | **Score:** %d/100\n\n", section.Quality, section.Score))
		output.WriteString(section.Feedback)
		output.WriteString("\n\n")
	}

	output.WriteString("## Keywords\n\n")
	if len(result.Keywords.Matching) > 0 {
		output.WriteString("### Matching\n")
		for _, kw := range result.Keywords.Matching {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
		output.WriteString("\n")
	}
	if len(result.Keywords.Missing) > 0 {
		output.WriteString("### Missing\n")
		for _, kw := range result.Keywords.Missing {
			output.WriteString(fmt.Sprintf("- %s\n", kw))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Formatting\n\n")
	if result.Formatting.ATSCompatible {
		output.WriteString("**ATS compatible:** yes\n\n")
	} else {
		output.WriteString("**ATS compatible:** no\n\n")
	}
	if len(result.Formatting.Issues) > 0 {
		for _, issue := range result.Formatting.Issues {
			output.WriteString(fmt.Sprintf("- %s\n", issue))
		}
		output.WriteString("\n")
	}

	if len(result.Suggestions) > 0 {
		output.WriteString("## Suggestions\n\n")
		for _, suggestion := range result.Suggestions {
			output.WriteString(fmt.Sprintf("- %s\n", suggestion))
		}
		output.WriteString("\n")
	}

	if len(result.ActionItems) > 0 {
		output.WriteString("## Action Items\n\n")
		for i, item := range result.ActionItems {
			output.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
		}
	}

	return output.String(), nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
