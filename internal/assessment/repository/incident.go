package repository

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// IncidentRepository counts reported incidents
type IncidentRepository struct {
	db *database.DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *database.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// CountByPatientSince counts incidents involving the patient since the given time
func (r *IncidentRepository) CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	return r.count(ctx, "patient_id", patientID, since)
}

// CountByCaregiverSince counts incidents involving the caregiver since the given time
func (r *IncidentRepository) CountByCaregiverSince(ctx context.Context, caregiverID string, since time.Time) (int, error) {
	return r.count(ctx, "caregiver_id", caregiverID, since)
}

// column is never user input
func (r *IncidentRepository) count(ctx context.Context, column, id string, since time.Time) (int, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	query := `SELECT COUNT(*) FROM incidents WHERE organization_id = $1 AND ` + column + ` = $2 AND occurred_at >= $3`
	if err := r.db.Conn(ctx).GetContext(ctx, &count, query, orgID, id, since); err != nil {
		return 0, mapError(err, "incident")
	}
	return count, nil
}
