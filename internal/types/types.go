package types

import (
	"encoding/json"
	"time"
)

// AnalyzeResumeInput represents the input for a resume analysis
type AnalyzeResumeInput struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// SectionFeedback represents the assessment of a single resume section
type SectionFeedback struct {
	Present  bool   `json:"present"`
	Quality  string `json:"quality"` // "excellent", "good", "fair", "poor", or "missing"
	Feedback string `json:"feedback"`
	Score    int    `json:"score"` // 0-100 section score
}

// KeywordAnalysis represents keyword matching against the job description
type KeywordAnalysis struct {
	Matching []string `json:"matching"`
	Missing  []string `json:"missing"`
}

// FormattingAnalysis represents ATS formatting compatibility findings
type FormattingAnalysis struct {
	ATSCompatible bool     `json:"atsCompatible"`
	Issues        []string `json:"issues"`
}

// AnalysisResult represents the full ATS-compatibility report for one scan
type AnalysisResult struct {
	Score       int                        `json:"score"` // 0-100 overall score
	Sections    map[string]SectionFeedback `json:"sections"`
	Keywords    KeywordAnalysis            `json:"keywords"`
	Formatting  FormattingAnalysis         `json:"formatting"`
	Suggestions []string                   `json:"suggestions"`
	ActionItems []string                   `json:"actionItems"`
	Summary     string                     `json:"summary"`
	Fallback    bool                       `json:"fallback,omitempty"` // true when AI output was substituted
}

// SectionNames lists the resume sections every report covers
var SectionNames = []string{
	"summary", "experience", "education", "skills", "projects", "certifications",
}

// ScanRecord represents one completed resume analysis.
// Immutable after creation; one record consumes one unit of quota.
type ScanRecord struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"userId"`
	FileName       string          `db:"file_name" json:"fileName"`
	FileSize       int64           `db:"file_size" json:"fileSize"`
	JobDescription string          `db:"job_description" json:"jobDescription,omitempty"`
	Score          int             `db:"score" json:"score"`
	ScanResults    json.RawMessage `db:"scan_results" json:"scanResults"`
	ScanDate       time.Time       `db:"scan_date" json:"scanDate"`
}

// Result decodes the stored analysis payload
func (s *ScanRecord) Result() (AnalysisResult, error) {
	var r AnalysisResult
	err := json.Unmarshal(s.ScanResults, &r)
	return r, err
}

// Subscription represents a premium entitlement window for a user
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ActiveAt reports whether the subscription grants premium entitlement at t.
// The stored active flag alone is not sufficient; expiry is a pure time
// comparison evaluated at read time.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.Active && t.Before(s.EndDate)
}

// PaymentRecord represents a manually submitted M-Pesa payment claim.
// States: pending (verified=false) -> verified. There is no rejected state;
// a claim only ever moves forward.
type PaymentRecord struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"userId"`
	ContactEmail string     `db:"contact_email" json:"contactEmail"`
	PhoneNumber  string     `db:"phone_number" json:"phoneNumber"`
	MpesaCode    string     `db:"mpesa_code" json:"mpesaCode"`
	PaymentDate  time.Time  `db:"payment_date" json:"paymentDate"`
	Verified     bool       `db:"verified" json:"verified"`
	VerifiedBy   *string    `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt   *time.Time `db:"verified_at" json:"verifiedAt,omitempty"`
}

// AdminLog is an append-only audit record of an administrative action
type AdminLog struct {
	ID              string          `db:"id" json:"id"`
	Action          string          `db:"action" json:"action"`
	AdminEmail      string          `db:"admin_email" json:"adminEmail"`
	TargetUserEmail string          `db:"target_user_email" json:"targetUserEmail"`
	Details         json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// User represents an account row
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"fullName"`
	PhoneNumber  string    `db:"phone_number" json:"phoneNumber,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Entitlement is the computed permission state governing whether a user may
// run an analysis
type Entitlement struct {
	Tier                string     `json:"tier"` // "free" or "premium"
	RemainingScans      int        `json:"remainingScans"`
	ScanLimit           int        `json:"scanLimit"`
	HasSubscription     bool       `json:"hasSubscription"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate,omitempty"`
}

const (
	TierFree    = "free"
	TierPremium = "premium"
)
