package cli

import (
	"context"
	"fmt"

	"resumescan/internal/ai"
	"resumescan/internal/common"
	"resumescan/internal/types"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [resume-file] [job-description-file]",
	Short: "Scan a resume for ATS compatibility",
	Long: `Scan a local resume file and report its ATS compatibility. When a job
description file is given, the report also covers keyword matching against
that posting.

The report includes:
- Overall ATS score and summary
- Per-section quality assessment
- Matching and missing keywords
- Formatting issues that trip up ATS parsers
- Concrete suggestions and action items

This command talks to the AI provider directly and does not touch the
scan history or quota of any account.`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if scanConfig.OutputFormat == "" {
			scanConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(scanConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runScan,
}

var scanConfig common.CommandConfig

func init() {
	scanCmd.Flags().StringVarP(&scanConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().StringVar(&scanConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = scanCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	// Create AI service for the analyze operation
	analyzeAIConfig := cfg.GetAnalyzeConfig()
	aiService, err := ai.NewService(&analyzeAIConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	createInput := func(contents []string) (types.AnalyzeResumeInput, error) {
		if len(contents) == 0 {
			return types.AnalyzeResumeInput{}, fmt.Errorf("expected at least 1 file path")
		}
		input := types.AnalyzeResumeInput{ResumeText: contents[0]}
		if len(contents) > 1 {
			input.JobDescription = contents[1]
		}
		return input, nil
	}

	logDetails := func(input types.AnalyzeResumeInput, cfg common.CommandConfig) {
		logger.Info("Starting resume scan",
			"resume_chars", len(input.ResumeText),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	scanOperation := func(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *ai.TokenUsage, error) {
		return aiService.AnalyzeResume(ctx, input)
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		scanConfig,
		args,
		createInput,
		scanOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to scan resume: %w", err)
	}
	logger.Info("Resume scan completed successfully")
	return nil
}
