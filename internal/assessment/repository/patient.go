package repository

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/tenant"
	"github.com/lib/pq"
)

type patientRow struct {
	ID                   string         `db:"id"`
	OrganizationID       string         `db:"organization_id"`
	DateOfBirth          time.Time      `db:"date_of_birth"`
	MedicalHistory       pq.StringArray `db:"medical_history"`
	MedicationCompliance *float64       `db:"medication_compliance"`
	MobilityLevel        *string        `db:"mobility_level"`
	CognitiveStatus      *string        `db:"cognitive_status"`
	LivesAlone           *bool          `db:"lives_alone"`
	Latitude             *float64       `db:"latitude"`
	Longitude            *float64       `db:"longitude"`
}

func (r patientRow) toDomain() *domain.Patient {
	return &domain.Patient{
		ID:                   r.ID,
		OrganizationID:       r.OrganizationID,
		DateOfBirth:          r.DateOfBirth,
		MedicalHistory:       []string(r.MedicalHistory),
		MedicationCompliance: r.MedicationCompliance,
		MobilityLevel:        r.MobilityLevel,
		CognitiveStatus:      r.CognitiveStatus,
		LivesAlone:           r.LivesAlone,
		Latitude:             r.Latitude,
		Longitude:            r.Longitude,
	}
}

const patientColumns = `id, organization_id, date_of_birth, medical_history,
	medication_compliance, mobility_level, cognitive_status, lives_alone,
	latitude, longitude`

// PatientRepository handles patient persistence
type PatientRepository struct {
	db *database.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *database.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// GetByID loads a patient of the current organization
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	var row patientRow
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND organization_id = $2`
	if err := r.db.Conn(ctx).GetContext(ctx, &row, query, id, orgID); err != nil {
		return nil, mapError(err, "patient")
	}
	return row.toDomain(), nil
}

// ListActive returns active patients of one organization, or of every
// organization when organizationID is empty.
func (r *PatientRepository) ListActive(ctx context.Context, organizationID string) ([]*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients
		WHERE status = 'active' AND ($1 = '' OR organization_id::text = $1)
		ORDER BY organization_id, id`

	var rows []patientRow
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, organizationID); err != nil {
		return nil, mapError(err, "patient")
	}

	patients := make([]*domain.Patient, 0, len(rows))
	for _, row := range rows {
		patients = append(patients, row.toDomain())
	}
	return patients, nil
}

// UpdateRisk stores the latest risk assessment on the patient
func (r *PatientRepository) UpdateRisk(ctx context.Context, patientID string, result domain.RiskAssessmentResult, assessedAt time.Time) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE patients SET
			risk_score = $3, risk_level = $4, risk_factors = $5,
			risk_recommendations = $6, last_risk_assessment = $7
		WHERE id = $1 AND organization_id = $2
	`
	res, err := r.db.Conn(ctx).ExecContext(ctx, query,
		patientID, orgID, result.RiskScore, string(result.RiskLevel),
		pq.StringArray(result.Factors), pq.StringArray(result.Recommendations), assessedAt,
	)
	if err != nil {
		return mapError(err, "patient")
	}
	return requireAffected(res, "patient")
}
