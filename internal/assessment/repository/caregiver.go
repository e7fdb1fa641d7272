package repository

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/tenant"
	"github.com/lib/pq"
)

type caregiverRow struct {
	ID                 string          `db:"id"`
	OrganizationID     string          `db:"organization_id"`
	HourlyRate         *float64        `db:"hourly_rate"`
	SatisfactionScores pq.Float64Array `db:"satisfaction_scores"`
	ComplianceIssues   int             `db:"compliance_issues"`
}

func (r caregiverRow) toDomain() *domain.Caregiver {
	return &domain.Caregiver{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID,
		HourlyRate:         r.HourlyRate,
		SatisfactionScores: []float64(r.SatisfactionScores),
		ComplianceIssues:   r.ComplianceIssues,
	}
}

const caregiverColumns = `id, organization_id, hourly_rate, satisfaction_scores, compliance_issues`

// PerformanceUpdate is what a performance assessment writes back to a caregiver
type PerformanceUpdate struct {
	Score            int
	Grade            domain.Grade
	TotalVisits      int
	OnTimePercentage float64
	ReviewedAt       time.Time
}

// CaregiverRepository handles caregiver persistence
type CaregiverRepository struct {
	db *database.DB
}

// NewCaregiverRepository creates a new caregiver repository
func NewCaregiverRepository(db *database.DB) *CaregiverRepository {
	return &CaregiverRepository{db: db}
}

// GetByID loads a caregiver of the current organization
func (r *CaregiverRepository) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	var row caregiverRow
	query := `SELECT ` + caregiverColumns + ` FROM caregivers WHERE id = $1 AND organization_id = $2`
	if err := r.db.Conn(ctx).GetContext(ctx, &row, query, id, orgID); err != nil {
		return nil, mapError(err, "caregiver")
	}
	return row.toDomain(), nil
}

// HourlyRate returns the caregiver's configured rate, nil when none is stored
func (r *CaregiverRepository) HourlyRate(ctx context.Context, caregiverID string) (*float64, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	var rate *float64
	query := `SELECT hourly_rate FROM caregivers WHERE id = $1 AND organization_id = $2`
	if err := r.db.Conn(ctx).GetContext(ctx, &rate, query, caregiverID, orgID); err != nil {
		return nil, mapError(err, "caregiver")
	}
	return rate, nil
}

// ListActive returns active caregivers of one organization, or of every
// organization when organizationID is empty.
func (r *CaregiverRepository) ListActive(ctx context.Context, organizationID string) ([]*domain.Caregiver, error) {
	query := `SELECT ` + caregiverColumns + ` FROM caregivers
		WHERE status = 'active' AND ($1 = '' OR organization_id::text = $1)
		ORDER BY organization_id, id`

	var rows []caregiverRow
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, organizationID); err != nil {
		return nil, mapError(err, "caregiver")
	}

	caregivers := make([]*domain.Caregiver, 0, len(rows))
	for _, row := range rows {
		caregivers = append(caregivers, row.toDomain())
	}
	return caregivers, nil
}

// UpdatePerformance stores the latest performance assessment on the caregiver
func (r *CaregiverRepository) UpdatePerformance(ctx context.Context, caregiverID string, u PerformanceUpdate) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE caregivers SET
			performance_score = $3, performance_grade = $4, total_visits = $5,
			on_time_percentage = $6, last_performance_review = $7
		WHERE id = $1 AND organization_id = $2
	`
	res, err := r.db.Conn(ctx).ExecContext(ctx, query,
		caregiverID, orgID, u.Score, string(u.Grade), u.TotalVisits, u.OnTimePercentage, u.ReviewedAt,
	)
	if err != nil {
		return mapError(err, "caregiver")
	}
	return requireAffected(res, "caregiver")
}
