// Package engine holds the four assessment engines. Engines are stateless and
// safe for concurrent use; every collaborator they need is passed in.
package engine

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
)

// AdvisoryService is an optional, non-deterministic risk assessor. Errors it
// returns are never surfaced past the RiskEngine.
type AdvisoryService interface {
	AssessRisk(ctx context.Context, in domain.RiskAssessmentInput) (domain.RiskAssessmentResult, error)
}

// HistoryLookup supplies a caregiver's visit history to the fraud detector
type HistoryLookup interface {
	// RecentCompletedVisits returns up to limit completed visits, newest scheduled start first
	RecentCompletedVisits(ctx context.Context, caregiverID string, limit int) ([]domain.VisitRecord, error)
	// OverlappingVisits returns the caregiver's other visits whose actual window intersects window
	OverlappingVisits(ctx context.Context, caregiverID, excludeVisitID string, window domain.TimeWindow) ([]domain.VisitRecord, error)
}

// RateLookup returns a caregiver's hourly rate; nil means none configured
type RateLookup interface {
	HourlyRate(ctx context.Context, caregiverID string) (*float64, error)
}

// CompletedVisitLookup returns completed visits with both actual times whose
// scheduled start lies within [start, end]
type CompletedVisitLookup interface {
	CompletedVisits(ctx context.Context, caregiverID string, start, end time.Time) ([]domain.VisitRecord, error)
}
