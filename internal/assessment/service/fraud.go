package service

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/geo"
	"github.com/careflow/careflow-backend/pkg/metrics"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// FraudCheck is a stored fraud verdict for a visit
type FraudCheck struct {
	VisitID     string `json:"visit_id"`
	CaregiverID string `json:"caregiver_id"`
	domain.FraudCheckResult
	CheckedAt time.Time `json:"checked_at"`
}

// CheckVisitFraud reviews one visit of the current organization
func (s *AssessmentService) CheckVisitFraud(ctx context.Context, visitID string) (*FraudCheck, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	visit, err := s.stores.Visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	patient, err := s.stores.Patients.GetByID(ctx, visit.PatientID)
	if err != nil {
		return nil, err
	}

	in := domain.FraudCheckInput{
		VisitID:        visit.ID,
		ScheduledStart: visit.ScheduledStart,
		ScheduledEnd:   visit.ScheduledEnd,
		ActualStart:    visit.ActualStart,
		ActualEnd:      visit.ActualEnd,
		CaregiverID:    visit.CaregiverID,
		PatientID:      visit.PatientID,
	}
	// The location signal needs both the home and the check-in coordinate.
	if patient.Latitude != nil && patient.Longitude != nil &&
		visit.CheckInLatitude != nil && visit.CheckInLongitude != nil {
		in.PatientLocation = geo.Coordinate{Lat: *patient.Latitude, Lng: *patient.Longitude}
		in.CheckInLocation = &geo.Coordinate{Lat: *visit.CheckInLatitude, Lng: *visit.CheckInLongitude}
	}

	start := time.Now()
	result, err := s.engines.Fraud.Check(ctx, in, s.stores.Visits)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveEngine("fraud", start)
	s.metrics.AssessmentCompleted("fraud", metrics.PathDeterministic)

	now := s.now()
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Visits.FlagFraud(ctx, visit.ID, result); err != nil {
			return err
		}
		return s.stores.Audit.Create(ctx, domain.AuditEntry{
			OrganizationID: orgID,
			ActorID:        tenant.ActorID(ctx),
			Action:         domain.AuditFraudCheck,
			Resource:       "visit",
			ResourceID:     visit.ID,
			Details: map[string]any{
				"is_suspicious": result.IsSuspicious,
				"confidence":    result.Confidence,
				"reasons":       result.Reasons,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishVisitFraudFlagged(ctx, orgID, visit.VisitRecord, result); err != nil {
		return nil, err
	}

	if result.IsSuspicious {
		s.logger.Warn().
			Str("visit_id", visit.ID).
			Str("caregiver_id", visit.CaregiverID).
			Int("confidence", result.Confidence).
			Strs("reasons", result.Reasons).
			Msg("visit flagged as suspicious")
	}

	return &FraudCheck{
		VisitID:          visit.ID,
		CaregiverID:      visit.CaregiverID,
		FraudCheckResult: result,
		CheckedAt:        now,
	}, nil
}
