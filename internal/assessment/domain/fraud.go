package domain

import (
	"time"

	"github.com/careflow/careflow-backend/pkg/geo"
)

// SuspicionThreshold is the lowest confidence reported as suspicious
const SuspicionThreshold = 40

// IsSuspiciousConfidence reports whether a clamped confidence is suspicious
func IsSuspiciousConfidence(confidence int) bool {
	return confidence >= SuspicionThreshold
}

// FraudCheckInput describes one visit under review
type FraudCheckInput struct {
	VisitID         string          `json:"visit_id"`
	ScheduledStart  time.Time       `json:"scheduled_start"`
	ScheduledEnd    time.Time       `json:"scheduled_end"`
	ActualStart     *time.Time      `json:"actual_start,omitempty"`
	ActualEnd       *time.Time      `json:"actual_end,omitempty"`
	CaregiverID     string          `json:"caregiver_id"`
	PatientID       string          `json:"patient_id"`
	PatientLocation geo.Coordinate  `json:"patient_location"`
	CheckInLocation *geo.Coordinate `json:"check_in_location,omitempty"`
}

// ActualDuration returns the recorded duration; ok is false unless both times are present
func (in FraudCheckInput) ActualDuration() (time.Duration, bool) {
	return actualDuration(in.ActualStart, in.ActualEnd)
}

// FraudCheckResult is the verdict for one visit
type FraudCheckResult struct {
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   int      `json:"confidence"`
	Reasons      []string `json:"reasons"`
}
