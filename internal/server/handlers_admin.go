package server

import (
	"net/http"
)

// pendingPaymentsHandler lists unverified payment claims for the admin console
func (s *Server) pendingPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePageParams(r)

	records, err := s.PaymentStore.ListPending(r.Context(), limit, offset)
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

// adminLogsHandler lists the audit trail of administrative actions
func (s *Server) adminLogsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePageParams(r)

	logs, err := s.AdminLogStore.List(r.Context(), limit, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSONResponse(w, map[string]any{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}
