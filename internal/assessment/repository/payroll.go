package repository

import (
	"context"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/google/uuid"
)

// DefaultPayrollListLimit is how many rows ListRecent returns when no limit is given
const DefaultPayrollListLimit = 50

// PayrollRepository handles payroll persistence
type PayrollRepository struct {
	db *database.DB
}

// NewPayrollRepository creates a new payroll repository
func NewPayrollRepository(db *database.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

// Create inserts a payroll row. Rows always start as drafts.
func (r *PayrollRepository) Create(ctx context.Context, rec *domain.PayrollRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Status = domain.PayrollDraft

	query := `
		INSERT INTO payroll (
			id, organization_id, caregiver_id, period_start, period_end,
			total_hours, hourly_rate, gross_pay, federal_tax, state_tax, fica,
			deductions, net_pay, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		rec.ID, rec.OrganizationID, rec.CaregiverID, rec.PeriodStart, rec.PeriodEnd,
		rec.TotalHours, rec.HourlyRate, rec.GrossPay, rec.FederalTax, rec.StateTax, rec.FICA,
		rec.Deductions, rec.NetPay, string(rec.Status),
	).Scan(&rec.CreatedAt)
	return mapError(err, "payroll")
}

// ListRecent returns the organization's payroll rows, latest period first
func (r *PayrollRepository) ListRecent(ctx context.Context, organizationID string, limit int) ([]*domain.PayrollRecord, error) {
	if limit <= 0 {
		limit = DefaultPayrollListLimit
	}

	query := `
		SELECT id, organization_id, caregiver_id, period_start, period_end,
		       total_hours, hourly_rate, gross_pay, federal_tax, state_tax, fica,
		       deductions, net_pay, status, created_at
		FROM payroll
		WHERE organization_id = $1
		ORDER BY period_start DESC, created_at DESC
		LIMIT $2
	`
	records := []*domain.PayrollRecord{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &records, query, organizationID, limit); err != nil {
		return nil, mapError(err, "payroll")
	}
	return records, nil
}
