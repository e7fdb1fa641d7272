package service

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/batch"
	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/metrics"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// DateLayout is the format of payroll period dates
const DateLayout = "2006-01-02"

// PayrollRun is the outcome of generating payroll for an organization
type PayrollRun struct {
	OrganizationID string                  `json:"organization_id"`
	PeriodStart    time.Time               `json:"period_start"`
	PeriodEnd      time.Time               `json:"period_end"`
	Count          int                     `json:"count"`
	Payroll        []*domain.PayrollRecord `json:"payroll"`
	Omitted        int                     `json:"omitted"`
	Skipped        []batch.Skipped         `json:"skipped"`
}

// CalculatePayroll computes one caregiver's pay without storing it. Both
// period dates are inclusive calendar days.
func (s *AssessmentService) CalculatePayroll(ctx context.Context, caregiverID string, start, end time.Time) (*domain.PayrollPeriodCalculation, error) {
	if _, err := tenant.OrganizationID(ctx); err != nil {
		return nil, err
	}

	begin := time.Now()
	calc, err := s.engines.Payroll.Calculate(ctx, caregiverID, start, endOfDay(end), s.stores.Caregivers, s.stores.Visits)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveEngine("payroll", begin)
	s.metrics.AssessmentCompleted("payroll", metrics.PathDeterministic)

	calc.PeriodEnd = end
	return calc, nil
}

// GeneratePayroll stores a draft payroll row for every active caregiver of
// the organization who worked in the period. Caregivers without hours are
// omitted; caregivers whose calculation or insert fails are skipped.
func (s *AssessmentService) GeneratePayroll(ctx context.Context, organizationID string, start, end time.Time) (*PayrollRun, error) {
	period := domain.TimeWindow{Start: start, End: end}
	if err := period.Validate("period"); err != nil {
		return nil, err
	}
	if organizationID == "" {
		return nil, errors.ValidationField("organization_id", "is required")
	}
	ctx = tenant.WithOrganizationID(ctx, organizationID)

	caregivers, err := s.stores.Caregivers.ListActive(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	report := batch.Run(ctx, s.runner, "payroll_generation", caregivers,
		func(c *domain.Caregiver) string { return c.ID },
		func(ctx context.Context, c *domain.Caregiver) (*domain.PayrollRecord, error) {
			calc, err := s.CalculatePayroll(ctx, c.ID, start, end)
			if err != nil {
				return nil, err
			}
			if calc.TotalHours == 0 {
				return nil, batch.ErrOmit
			}
			rec := domain.NewPayrollRecord(organizationID, calc)
			if err := s.stores.Payroll.Create(ctx, rec); err != nil {
				return nil, err
			}
			return rec, nil
		},
	)

	run := &PayrollRun{
		OrganizationID: organizationID,
		PeriodStart:    start,
		PeriodEnd:      end,
		Count:          len(report.Results),
		Payroll:        report.Results,
		Omitted:        report.Omitted,
		Skipped:        report.Skipped,
	}

	err = s.stores.Audit.Create(ctx, domain.AuditEntry{
		OrganizationID: organizationID,
		ActorID:        tenant.ActorID(ctx),
		Action:         domain.AuditGeneratePayroll,
		Resource:       "payroll",
		ResourceID:     start.Format(DateLayout) + "/" + end.Format(DateLayout),
		Details: map[string]any{
			"period_start": start.Format(DateLayout),
			"period_end":   end.Format(DateLayout),
			"count":        run.Count,
			"omitted":      run.Omitted,
			"skipped":      len(run.Skipped),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishPayrollGenerated(ctx, organizationID, start, end, run.Count, run.Omitted, len(run.Skipped)); err != nil {
		return nil, err
	}

	return run, nil
}

// ListPayroll returns the organization's most recent payroll rows
func (s *AssessmentService) ListPayroll(ctx context.Context, organizationID string) ([]*domain.PayrollRecord, error) {
	return s.stores.Payroll.ListRecent(ctx, organizationID, repository.DefaultPayrollListLimit)
}

// endOfDay is the last microsecond of t's calendar day; Postgres keeps
// microsecond precision so nothing on that day is excluded.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Microsecond)
}
