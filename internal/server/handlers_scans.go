package server

import (
	"net/http"

	"resumescan/internal/errors"
	"resumescan/internal/report"
	"resumescan/internal/types"
)

// listScansHandler returns the caller's scan history, newest first
func (s *Server) listScansHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	limit, offset := parsePageParams(r)

	scans, err := s.ScanStore.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, map[string]any{
		"scans":  scans,
		"limit":  limit,
		"offset": offset,
	})
}

// getScanHandler returns a single scan record owned by the caller
func (s *Server) getScanHandler(w http.ResponseWriter, r *http.Request) {
	scanRecord, ok := s.loadOwnedScan(w, r)
	if !ok {
		return
	}

	writeJSONResponse(w, scanRecord)
}

// scanReportHandler renders a scan as a standalone printable HTML report
func (s *Server) scanReportHandler(w http.ResponseWriter, r *http.Request) {
	scanRecord, ok := s.loadOwnedScan(w, r)
	if !ok {
		return
	}

	html, err := report.RenderHTML(scanRecord)
	if err != nil {
		s.Logger.LogError(err, "Failed to render scan report",
			"scan_id", scanRecord.ID)
		writeErrorResponse(w, "Failed to render report", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(html); err != nil {
		s.Logger.Warn("Failed to write report response", "error", err)
	}
}

// loadOwnedScan fetches the scan from the path and enforces ownership.
// Admins may read any scan. Writes the error response itself on failure.
func (s *Server) loadOwnedScan(w http.ResponseWriter, r *http.Request) (*types.ScanRecord, bool) {
	user := userFrom(r.Context())
	id := r.PathValue("id")

	scanRecord, err := s.ScanStore.GetByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return nil, false
	}

	if scanRecord.UserID != user.ID && !user.IsAdmin() {
		// Report not-found rather than forbidden so scan IDs are not probeable
		writeAppError(w, errors.NewStoreError(errors.ErrCodeScanNotFound, "Scan not found", nil))
		return nil, false
	}

	return scanRecord, true
}

// listPaymentsHandler returns the caller's payment claims, newest first
func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	limit, offset := parsePageParams(r)

	records, err := s.PaymentStore.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, map[string]any{
		"payments": records,
		"limit":    limit,
		"offset":   offset,
	})
}
