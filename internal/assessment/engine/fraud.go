package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/geo"
)

// Fraud thresholds
const (
	BaselineHistorySize   = 10
	MaxCheckInDistance    = 0.5 // miles
	shortVisitMinutes     = 15
	longVisitMinutes      = 480
	baselineDeviationRate = 0.5
)

// fraudCheck carries one visit through the signal table. History lookups
// run at most once each: the baseline only for a positive duration, the
// overlap query whenever both actual times are present.
type fraudCheck struct {
	in          domain.FraudCheckInput
	history     HistoryLookup
	duration    time.Duration
	hasDuration bool
}

type fraudSignal struct {
	name   string
	points int
	eval   func(ctx context.Context, c *fraudCheck) (reason string, fired bool, err error)
}

var fraudSignals = []fraudSignal{
	{name: "missing_times", points: 30, eval: func(_ context.Context, c *fraudCheck) (string, bool, error) {
		return "Visit marked complete without recorded times", !c.hasDuration, nil
	}},
	{name: "short_duration", points: 40, eval: func(_ context.Context, c *fraudCheck) (string, bool, error) {
		return "Visit duration suspiciously short (<15 minutes)", c.hasDuration && c.duration.Minutes() < shortVisitMinutes, nil
	}},
	{name: "long_duration", points: 30, eval: func(_ context.Context, c *fraudCheck) (string, bool, error) {
		return "Visit duration suspiciously long (>8 hours)", c.hasDuration && c.duration.Minutes() > longVisitMinutes, nil
	}},
	{name: "check_in_distance", points: 50, eval: func(_ context.Context, c *fraudCheck) (string, bool, error) {
		if c.in.CheckInLocation == nil {
			return "", false, nil
		}
		miles := geo.DistanceMiles(*c.in.CheckInLocation, c.in.PatientLocation)
		return fmt.Sprintf("Check-in location %.2f miles from patient address", miles), miles > MaxCheckInDistance, nil
	}},
	{name: "baseline_deviation", points: 20, eval: func(ctx context.Context, c *fraudCheck) (string, bool, error) {
		if !c.positiveDuration() {
			return "", false, nil
		}
		recent, err := c.history.RecentCompletedVisits(ctx, c.in.CaregiverID, BaselineHistorySize)
		if err != nil {
			return "", false, errors.LookupFailure("recent visit history", err)
		}
		avg, ok := averageMinutes(recent)
		return "Visit duration significantly shorter than caregiver average", ok && c.duration.Minutes() < avg*baselineDeviationRate, nil
	}},
	{name: "overlap", points: 60, eval: func(ctx context.Context, c *fraudCheck) (string, bool, error) {
		if !c.hasDuration {
			return "", false, nil
		}
		window := domain.TimeWindow{Start: *c.in.ActualStart, End: *c.in.ActualEnd}
		overlapping, err := c.history.OverlappingVisits(ctx, c.in.CaregiverID, c.in.VisitID, window)
		if err != nil {
			return "", false, errors.LookupFailure("overlapping visit", err)
		}
		return "Overlapping visits detected for same caregiver", len(overlapping) > 0, nil
	}},
}

func (c *fraudCheck) positiveDuration() bool {
	return c.hasDuration && c.duration > 0
}

// FraudDetector flags suspicious visits from temporal, spatial and baseline signals
type FraudDetector struct{}

// NewFraudDetector creates a fraud detector
func NewFraudDetector() *FraudDetector {
	return &FraudDetector{}
}

// Check scores one visit. Reasons follow signal order. A failed history
// lookup fails the whole check; no partial verdict is returned.
func (d *FraudDetector) Check(ctx context.Context, in domain.FraudCheckInput, history HistoryLookup) (domain.FraudCheckResult, error) {
	scheduled := domain.TimeWindow{Start: in.ScheduledStart, End: in.ScheduledEnd}
	if err := scheduled.Validate("scheduled_window"); err != nil {
		return domain.FraudCheckResult{}, err
	}

	c := &fraudCheck{in: in, history: history}
	c.duration, c.hasDuration = in.ActualDuration()
	if c.hasDuration && c.duration < 0 {
		return domain.FraudCheckResult{}, errors.ValidationField("actual_window", "end must not precede start")
	}

	suspicion := 0
	reasons := []string{}
	for _, s := range fraudSignals {
		reason, fired, err := s.eval(ctx, c)
		if err != nil {
			return domain.FraudCheckResult{}, err
		}
		if fired {
			suspicion += s.points
			reasons = append(reasons, reason)
		}
	}

	confidence := clamp(suspicion, 0, 100)
	return domain.FraudCheckResult{
		IsSuspicious: domain.IsSuspiciousConfidence(confidence),
		Confidence:   confidence,
		Reasons:      reasons,
	}, nil
}

func averageMinutes(visits []domain.VisitRecord) (float64, bool) {
	var total float64
	n := 0
	for _, v := range visits {
		d, ok := v.Duration()
		if !ok {
			continue
		}
		total += d.Minutes()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}
