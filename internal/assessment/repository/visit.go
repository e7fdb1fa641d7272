package repository

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/tenant"
	"github.com/lib/pq"
)

const visitColumns = `id, patient_id, caregiver_id, scheduled_start, scheduled_end,
	actual_start, actual_end, status`

// VisitRepository handles visit persistence and the history lookups of the
// fraud detector and payroll calculator
type VisitRepository struct {
	db *database.DB
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *database.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) selectVisits(ctx context.Context, where string, args ...interface{}) ([]domain.VisitRecord, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + visitColumns + ` FROM visits WHERE organization_id = $1 AND ` + where
	visits := []domain.VisitRecord{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &visits, query, append([]interface{}{orgID}, args...)...); err != nil {
		return nil, mapError(err, "visit")
	}
	return visits, nil
}

// RecentCompletedVisits returns up to limit completed visits, newest scheduled start first
func (r *VisitRepository) RecentCompletedVisits(ctx context.Context, caregiverID string, limit int) ([]domain.VisitRecord, error) {
	return r.selectVisits(ctx,
		`caregiver_id = $2 AND status = 'completed' ORDER BY scheduled_start DESC LIMIT $3`,
		caregiverID, limit)
}

// OverlappingVisits returns the caregiver's other visits whose actual window
// intersects window
func (r *VisitRepository) OverlappingVisits(ctx context.Context, caregiverID, excludeVisitID string, window domain.TimeWindow) ([]domain.VisitRecord, error) {
	return r.selectVisits(ctx,
		`caregiver_id = $2 AND id::text <> $3
			AND actual_start IS NOT NULL AND actual_end IS NOT NULL
			AND actual_start < $5 AND actual_end > $4
		ORDER BY actual_start`,
		caregiverID, excludeVisitID, window.Start, window.End)
}

// CompletedVisits returns completed visits with both actual times whose
// scheduled start lies within [start, end]
func (r *VisitRepository) CompletedVisits(ctx context.Context, caregiverID string, start, end time.Time) ([]domain.VisitRecord, error) {
	return r.selectVisits(ctx,
		`caregiver_id = $2 AND status = 'completed'
			AND actual_start IS NOT NULL AND actual_end IS NOT NULL
			AND scheduled_start >= $3 AND scheduled_start <= $4
		ORDER BY scheduled_start`,
		caregiverID, start, end)
}

// ListByCaregiverSince returns every visit of the caregiver scheduled at or after since
func (r *VisitRepository) ListByCaregiverSince(ctx context.Context, caregiverID string, since time.Time) ([]domain.VisitRecord, error) {
	return r.selectVisits(ctx,
		`caregiver_id = $2 AND scheduled_start >= $3 ORDER BY scheduled_start`,
		caregiverID, since)
}

// GetByID loads a visit with its check-in coordinate
func (r *VisitRepository) GetByID(ctx context.Context, id string) (*domain.VisitDetail, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	var visit domain.VisitDetail
	query := `SELECT ` + visitColumns + `, organization_id, check_in_latitude, check_in_longitude
		FROM visits WHERE id = $1 AND organization_id = $2`
	if err := r.db.Conn(ctx).GetContext(ctx, &visit, query, id, orgID); err != nil {
		return nil, mapError(err, "visit")
	}
	return &visit, nil
}

// CountByPatientStatusSince counts a patient's visits in a status scheduled at or after since
func (r *VisitRepository) CountByPatientStatusSince(ctx context.Context, patientID string, status domain.VisitStatus, since time.Time) (int, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM visits
		WHERE organization_id = $1 AND patient_id = $2 AND status = $3 AND scheduled_start >= $4`
	if err := r.db.Conn(ctx).GetContext(ctx, &count, query, orgID, patientID, string(status), since); err != nil {
		return 0, mapError(err, "visit")
	}
	return count, nil
}

// FlagFraud stores a fraud check verdict on the visit
func (r *VisitRepository) FlagFraud(ctx context.Context, visitID string, result domain.FraudCheckResult) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE visits SET fraud_flagged = $3, fraud_confidence = $4, fraud_reasons = $5
		WHERE id = $1 AND organization_id = $2
	`
	res, err := r.db.Conn(ctx).ExecContext(ctx, query,
		visitID, orgID, result.IsSuspicious, result.Confidence, pq.StringArray(result.Reasons),
	)
	if err != nil {
		return mapError(err, "visit")
	}
	return requireAffected(res, "visit")
}
