package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                    - Health check")
	fmt.Println("  GET  /stats                     - Server statistics")
	fmt.Println("  POST /auth/signup               - Create an account")
	fmt.Println("  POST /auth/login                - Open a session")
	fmt.Println("  POST /auth/logout               - Revoke the session")
	fmt.Println("  GET  /entitlement               - Current scan entitlement")
	fmt.Println("  POST /scan                      - Run a resume scan")
	fmt.Println("  GET  /scans                     - Scan history")
	fmt.Println("  GET  /scans/{id}                - Scan detail")
	fmt.Println("  GET  /scans/{id}/report         - Printable HTML report")
	fmt.Println("  POST /payments                  - Submit a payment claim")
	fmt.Println("  GET  /payments                  - Payment claim history")
	fmt.Println("  POST /admin/payments/verify     - Verify a payment (admin)")
	fmt.Println("  GET  /admin/payments/pending    - Pending claims (admin)")
	fmt.Println("  GET  /admin/logs                - Audit log (admin)")
	fmt.Println("All endpoints except /health, /stats, signup and login require a session token")
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByToken {
			fmt.Println("  - Per session token rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
