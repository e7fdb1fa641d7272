package service

import (
	"context"
	"math"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/batch"
	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/pkg/metrics"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// PerformanceAssessment is a stored caregiver performance assessment
type PerformanceAssessment struct {
	CaregiverID string `json:"caregiver_id"`
	domain.PerformanceAssessmentResult
	Stats            domain.VisitStats `json:"stats"`
	OnTimePercentage float64           `json:"on_time_percentage"`
	AssessedAt       time.Time         `json:"assessed_at"`
}

// AssessCaregiverPerformance grades one caregiver of the current organization
func (s *AssessmentService) AssessCaregiverPerformance(ctx context.Context, caregiverID string) (*PerformanceAssessment, error) {
	caregiver, err := s.stores.Caregivers.GetByID(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	return s.assessCaregiver(ctx, caregiver)
}

// RunWeeklyPerformanceScoring grades every active caregiver of every organization
func (s *AssessmentService) RunWeeklyPerformanceScoring(ctx context.Context) (*batch.Report[*PerformanceAssessment], error) {
	caregivers, err := s.stores.Caregivers.ListActive(ctx, "")
	if err != nil {
		return nil, err
	}

	return batch.Run(ctx, s.runner, "weekly_performance_scoring", caregivers,
		func(c *domain.Caregiver) string { return c.ID },
		func(ctx context.Context, c *domain.Caregiver) (*PerformanceAssessment, error) {
			return s.assessCaregiver(tenant.WithOrganizationID(ctx, c.OrganizationID), c)
		},
	), nil
}

func (s *AssessmentService) assessCaregiver(ctx context.Context, caregiver *domain.Caregiver) (*PerformanceAssessment, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	since := now.Add(-s.opts.Lookback)

	visits, err := s.stores.Visits.ListByCaregiverSince(ctx, caregiver.ID, since)
	if err != nil {
		return nil, lookupError("caregiver visit history", err)
	}
	incidents, err := s.stores.Incidents.CountByCaregiverSince(ctx, caregiver.ID, since)
	if err != nil {
		return nil, lookupError("caregiver incident history", err)
	}

	stats := visitStats(visits, s.opts.LateGrace)
	in := domain.PerformanceAssessmentInput{
		CaregiverID:          caregiver.ID,
		TotalVisits:          stats.Total,
		CompletedVisits:      stats.Completed,
		MissedVisits:         stats.Missed,
		LateVisits:           stats.Late,
		AverageVisitDuration: stats.AverageDuration,
		SatisfactionScores:   append([]float64{}, caregiver.SatisfactionScores...),
		IncidentsReported:    incidents,
		ComplianceIssues:     caregiver.ComplianceIssues,
	}

	start := time.Now()
	result, err := s.engines.Performance.Assess(in)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveEngine("performance", start)
	s.metrics.AssessmentCompleted("performance", metrics.PathDeterministic)

	onTime := onTimePercentage(stats)

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Caregivers.UpdatePerformance(ctx, caregiver.ID, repository.PerformanceUpdate{
			Score:            result.PerformanceScore,
			Grade:            result.Grade,
			TotalVisits:      stats.Total,
			OnTimePercentage: onTime,
			ReviewedAt:       now,
		}); err != nil {
			return err
		}
		return s.stores.Audit.Create(ctx, domain.AuditEntry{
			OrganizationID: orgID,
			ActorID:        tenant.ActorID(ctx),
			Action:         domain.AuditPerformanceAssessment,
			Resource:       "caregiver",
			ResourceID:     caregiver.ID,
			Details: map[string]any{
				"performance_score": result.PerformanceScore,
				"grade":             result.Grade,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishPerformanceAssessed(ctx, orgID, caregiver.ID, result); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("caregiver_id", caregiver.ID).
		Int("performance_score", result.PerformanceScore).
		Str("grade", string(result.Grade)).
		Msg("caregiver performance assessed")

	return &PerformanceAssessment{
		CaregiverID:                 caregiver.ID,
		PerformanceAssessmentResult: result,
		Stats:                       stats,
		OnTimePercentage:            onTime,
		AssessedAt:                  now,
	}, nil
}

// visitStats aggregates visits. A visit is late when its actual start is
// more than grace after its scheduled start. The average covers visits with
// both actual times and a non-negative duration, in minutes.
func visitStats(visits []domain.VisitRecord, grace time.Duration) domain.VisitStats {
	stats := domain.VisitStats{Total: len(visits)}

	var minutes float64
	timed := 0
	for _, v := range visits {
		switch v.Status {
		case domain.VisitCompleted:
			stats.Completed++
		case domain.VisitMissed:
			stats.Missed++
		}
		if v.ActualStart != nil && v.ActualStart.Sub(v.ScheduledStart) > grace {
			stats.Late++
		}
		if d, ok := v.Duration(); ok && d >= 0 {
			minutes += d.Minutes()
			timed++
		}
	}

	if timed > 0 {
		stats.AverageDuration = minutes / float64(timed)
	}
	return stats
}

// onTimePercentage is 100 when there were no visits
func onTimePercentage(stats domain.VisitStats) float64 {
	if stats.Total == 0 {
		return 100
	}
	pct := float64(stats.Total-stats.Late) / float64(stats.Total) * 100
	return math.Round(pct*100) / 100
}
