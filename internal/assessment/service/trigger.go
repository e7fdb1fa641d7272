package service

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// TriggerKind names a job an external collaborator can start
type TriggerKind string

const (
	TriggerDailyRiskScoring         TriggerKind = "daily_risk_scoring"
	TriggerWeeklyPerformanceScoring TriggerKind = "weekly_performance_scoring"
	TriggerVisitFraudDetection      TriggerKind = "visit_fraud_detection"
	TriggerPayrollGeneration        TriggerKind = "payroll_generation"
)

// TriggerData carries the parameters a trigger kind needs
type TriggerData struct {
	OrganizationID string `json:"organization_id,omitempty"`
	VisitID        string `json:"visit_id,omitempty"`
	PeriodStart    string `json:"period_start,omitempty"`
	PeriodEnd      string `json:"period_end,omitempty"`
}

// TriggerResult summarizes a triggered run
type TriggerResult struct {
	Kind      TriggerKind `json:"event_type"`
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Omitted   int         `json:"omitted"`
	Result    any         `json:"result,omitempty"`
}

// RunTrigger starts the job named by kind. Unknown kinds and missing
// parameters are validation errors.
func (s *AssessmentService) RunTrigger(ctx context.Context, kind TriggerKind, data TriggerData) (*TriggerResult, error) {
	switch kind {
	case TriggerDailyRiskScoring:
		report, err := s.RunDailyRiskScoring(ctx)
		if err != nil {
			return nil, err
		}
		return &TriggerResult{Kind: kind, Processed: len(report.Results), Skipped: len(report.Skipped), Result: report}, nil

	case TriggerWeeklyPerformanceScoring:
		report, err := s.RunWeeklyPerformanceScoring(ctx)
		if err != nil {
			return nil, err
		}
		return &TriggerResult{Kind: kind, Processed: len(report.Results), Skipped: len(report.Skipped), Result: report}, nil

	case TriggerVisitFraudDetection:
		if data.VisitID == "" {
			return nil, errors.ValidationField("visit_id", "is required")
		}
		if data.OrganizationID == "" {
			return nil, errors.ValidationField("organization_id", "is required")
		}
		check, err := s.CheckVisitFraud(tenant.WithOrganizationID(ctx, data.OrganizationID), data.VisitID)
		if err != nil {
			return nil, err
		}
		return &TriggerResult{Kind: kind, Processed: 1, Result: check}, nil

	case TriggerPayrollGeneration:
		start, end, err := ParsePeriod(data.PeriodStart, data.PeriodEnd)
		if err != nil {
			return nil, err
		}
		run, err := s.GeneratePayroll(ctx, data.OrganizationID, start, end)
		if err != nil {
			return nil, err
		}
		return &TriggerResult{Kind: kind, Processed: run.Count, Skipped: len(run.Skipped), Omitted: run.Omitted, Result: run}, nil

	default:
		return nil, errors.ValidationField("event_type", "unknown event type "+string(kind))
	}
}

// ParsePeriod parses two YYYY-MM-DD dates and checks their order
func ParsePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ValidationField("period_start", "must be a date in YYYY-MM-DD format")
	}
	end, err := time.Parse(DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.ValidationField("period_end", "must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.ValidationField("period_end", "must not precede period_start")
	}
	return start, end, nil
}
