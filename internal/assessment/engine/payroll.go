package engine

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	federalRate = decimal.NewFromFloat(domain.FederalTaxRate)
	stateRate   = decimal.NewFromFloat(domain.StateTaxRate)
	ficaRate    = decimal.NewFromFloat(domain.FICARate)
	hour        = decimal.NewFromInt(int64(time.Hour))
)

// PayrollCalculator turns completed visits into gross and net pay
type PayrollCalculator struct{}

// NewPayrollCalculator creates a payroll calculator
func NewPayrollCalculator() *PayrollCalculator {
	return &PayrollCalculator{}
}

// Calculate computes one caregiver's pay for [periodStart, periodEnd].
// Money is exact decimal arithmetic. Every reported figure is rounded to
// cents on its own; net pay is derived from the unrounded gross and deductions.
func (c *PayrollCalculator) Calculate(
	ctx context.Context,
	caregiverID string,
	periodStart, periodEnd time.Time,
	rates RateLookup,
	visits CompletedVisitLookup,
) (*domain.PayrollPeriodCalculation, error) {
	period := domain.TimeWindow{Start: periodStart, End: periodEnd}
	if err := period.Validate("period"); err != nil {
		return nil, err
	}

	rate, err := rates.HourlyRate(ctx, caregiverID)
	if err != nil {
		return nil, lookupError("hourly rate", err)
	}
	if rate == nil || *rate <= 0 {
		return nil, errors.Configuration("caregiver " + caregiverID + " has no positive hourly rate configured")
	}

	completed, err := visits.CompletedVisits(ctx, caregiverID, periodStart, periodEnd)
	if err != nil {
		return nil, lookupError("completed visits", err)
	}

	lines := make([]domain.PayrollVisitLine, 0, len(completed))
	hours := decimal.Zero
	for _, v := range completed {
		d, ok := v.Duration()
		if !ok {
			continue
		}
		if d < 0 {
			return nil, errors.ValidationField("visit "+v.ID, "actual end precedes actual start")
		}
		h := decimal.NewFromInt(int64(d)).Div(hour).RoundBank(2)
		hours = hours.Add(h)
		lines = append(lines, domain.PayrollVisitLine{VisitID: v.ID, Date: v.ScheduledStart, Hours: h.InexactFloat64()})
	}

	totalHours := hours.RoundBank(2)
	gross := totalHours.Mul(decimal.NewFromFloat(*rate))
	federal := gross.Mul(federalRate)
	state := gross.Mul(stateRate)
	fica := gross.Mul(ficaRate)
	deductions := federal.Add(state).Add(fica)

	return &domain.PayrollPeriodCalculation{
		CaregiverID: caregiverID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		TotalHours:  totalHours.InexactFloat64(),
		HourlyRate:  *rate,
		GrossPay:    cents(gross),
		Deductions:  cents(deductions),
		DeductionBreakdown: domain.DeductionBreakdown{
			Federal: cents(federal),
			State:   cents(state),
			FICA:    cents(fica),
		},
		NetPay: cents(gross.Sub(deductions)),
		Visits: lines,
	}, nil
}

// cents rounds half to even at two decimals
func cents(v decimal.Decimal) float64 {
	return v.RoundBank(2).InexactFloat64()
}

// lookupError keeps typed errors from the lookup (not found, validation)
// and classifies everything else as a lookup failure.
func lookupError(lookup string, err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errors.LookupFailure(lookup, err)
}
