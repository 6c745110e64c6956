package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	resumescanErrors "resumescan/internal/errors"
	"resumescan/internal/observability"
	"resumescan/internal/payments"
	"resumescan/internal/scan"

	"go.opentelemetry.io/otel/attribute"
)

// createScanHandler wraps the resume scan flow with observability.
// Expects a multipart form with a "resume" file part and an optional
// "jobDescription" field.
func (s *Server) createScanHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumescan.api")
		ctx, span := tracer.Start(ctx, "api.scan")
		defer span.End()

		user := userFrom(ctx)

		upload, err := s.parseScanUpload(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid upload", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_bytes", len(upload.Content)),
			attribute.Int("request.job_length", len(upload.JobDescription)),
			attribute.String("operation", "scan"),
		)

		// Track the AI operation with token usage; the orchestrator handles
		// entitlement gating, fallback and persistence internally.
		metrics := om.GetMetrics()
		var result *scan.Result
		err = metrics.TrackAIOperationWithTokens(ctx, "analyze", func(ctx context.Context) *observability.AIOperationResult {
			res, runErr := s.Scans.Run(ctx, user.ID, upload)
			result = res
			var usage *observability.TokenUsage
			if res != nil {
				usage = (*observability.TokenUsage)(res.Usage)
			}
			return &observability.AIOperationResult{
				Error:      runErr,
				TokenUsage: usage,
			}
		}, om)

		if err != nil {
			span.RecordError(err)
			if resumescanErrors.IsCode(err, resumescanErrors.ErrCodeQuotaExhausted) {
				span.SetAttributes(attribute.String("error.type", "entitlement"))
				metrics.RecordBusinessMetric(ctx, "entitlement_denied", true, om,
					attribute.String("endpoint", r.URL.Path))
			} else {
				span.SetAttributes(attribute.String("error.type", "scan_processing"))
				metrics.RecordBusinessMetric(ctx, "scan_completed", false, om,
					attribute.String("error", err.Error()))
			}
			writeAppError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "scan_completed", true, om,
			attribute.Int("score", result.Analysis.Score),
			attribute.Bool("fallback", result.Analysis.Fallback))
		if result.Analysis.Fallback {
			metrics.RecordBusinessMetric(ctx, "fallback_served", true, om)
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.score", result.Analysis.Score),
			attribute.Bool("response.fallback", result.Analysis.Fallback),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		writeJSONResponse(w, result)
	}
}

// parseScanUpload extracts the resume file and job description from the request
func (s *Server) parseScanUpload(r *http.Request) (scan.Upload, error) {
	if err := r.ParseMultipartForm(s.MaxRequestSize); err != nil {
		return scan.Upload{}, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		return scan.Upload{}, fmt.Errorf("resume file part is required: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.Logger.Warn("Failed to close uploaded file", "error", closeErr)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return scan.Upload{}, fmt.Errorf("resume file too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return scan.Upload{}, fmt.Errorf("failed to read resume file: %w", err)
	}

	return scan.Upload{
		FileName:       header.Filename,
		FileSize:       int64(len(content)),
		Content:        content,
		JobDescription: r.FormValue("jobDescription"),
	}, nil
}

// createSubmitPaymentHandler wraps payment claim submission with observability
func (s *Server) createSubmitPaymentHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumescan.api")
		ctx, span := tracer.Start(ctx, "api.payments.submit")
		defer span.End()

		user := userFrom(ctx)

		var req payments.SubmitInput
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		payment, err := s.Payments.Submit(ctx, user.ID, req)
		if err != nil {
			span.RecordError(err)
			metrics := om.GetMetrics()
			metrics.RecordBusinessMetric(ctx, "payment_submitted", false, om)
			writeAppError(w, err)
			return
		}

		metrics := om.GetMetrics()
		metrics.RecordBusinessMetric(ctx, "payment_submitted", true, om)
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("payment.id", payment.ID),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		writeJSONResponse(w, payment)
	}
}

type verifyPaymentRequest struct {
	Email string `json:"email"`
}

// createVerifyPaymentHandler wraps admin payment verification with observability
func (s *Server) createVerifyPaymentHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumescan.api")
		ctx, span := tracer.Start(ctx, "api.payments.verify")
		defer span.End()

		admin := userFrom(ctx)

		var req verifyPaymentRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		if req.Email == "" {
			writeErrorResponse(w, "Missing email", "email field is required", http.StatusBadRequest)
			return
		}

		result, err := s.Payments.Verify(ctx, admin.Email, req.Email)
		if err != nil {
			span.RecordError(err)
			metrics := om.GetMetrics()
			metrics.RecordBusinessMetric(ctx, "payment_verified", false, om,
				attribute.String("error", err.Error()))
			writeAppError(w, err)
			return
		}

		metrics := om.GetMetrics()
		metrics.RecordBusinessMetric(ctx, "payment_verified", true, om,
			attribute.Bool("extended", result.Extended))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("subscription.extended", result.Extended),
		)

		writeJSONResponse(w, result)
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
