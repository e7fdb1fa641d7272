package domain

import "time"

// Patient is the stored patient snapshot the risk assessment reads.
// Nil clinical fields fall back to defaults when building an assessment input.
type Patient struct {
	ID                   string
	OrganizationID       string
	DateOfBirth          time.Time
	MedicalHistory       []string
	MedicationCompliance *float64
	MobilityLevel        *string
	CognitiveStatus      *string
	LivesAlone           *bool
	Latitude             *float64
	Longitude            *float64
}

// AgeAt returns the patient's age in whole years on the given day
func (p *Patient) AgeAt(now time.Time) int {
	age := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Caregiver is the stored caregiver snapshot used for performance and payroll
type Caregiver struct {
	ID                 string
	OrganizationID     string
	HourlyRate         *float64
	SatisfactionScores []float64
	ComplianceIssues   int
}

// VisitDetail is a visit together with the data a fraud check needs
type VisitDetail struct {
	VisitRecord
	OrganizationID   string   `db:"organization_id"`
	CheckInLatitude  *float64 `db:"check_in_latitude"`
	CheckInLongitude *float64 `db:"check_in_longitude"`
}

// VisitStats summarizes a caregiver's visits over a lookback window
type VisitStats struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Missed          int     `json:"missed"`
	Late            int     `json:"late"`
	AverageDuration float64 `json:"average_duration"`
}

// AuditAction names what an audit entry records
type AuditAction string

const (
	AuditRiskAssessment        AuditAction = "RISK_ASSESSMENT"
	AuditPerformanceAssessment AuditAction = "PERFORMANCE_ASSESSMENT"
	AuditFraudCheck            AuditAction = "FRAUD_CHECK"
	AuditGeneratePayroll       AuditAction = "GENERATE_PAYROLL"
)

// AuditEntry is a provenance record written after a stored assessment
type AuditEntry struct {
	OrganizationID string
	ActorID        string
	Action         AuditAction
	Resource       string
	ResourceID     string
	Details        map[string]any
}
