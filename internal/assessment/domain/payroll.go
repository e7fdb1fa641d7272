package domain

import "time"

// PayrollStatus of a stored payroll row
type PayrollStatus string

const (
	PayrollDraft    PayrollStatus = "draft"
	PayrollApproved PayrollStatus = "approved"
	PayrollPaid     PayrollStatus = "paid"
)

// Deduction rates applied to gross pay
const (
	FederalTaxRate = 0.12
	StateTaxRate   = 0.05
	FICARate       = 0.0765
)

// DeductionBreakdown itemizes deductions, each rounded to cents
type DeductionBreakdown struct {
	Federal float64 `json:"federal"`
	State   float64 `json:"state"`
	FICA    float64 `json:"fica"`
}

// PayrollVisitLine is one visit's contribution to a payroll period
type PayrollVisitLine struct {
	VisitID string    `json:"visit_id"`
	Date    time.Time `json:"date"`
	Hours   float64   `json:"hours"`
}

// PayrollPeriodCalculation is a caregiver's pay for one period
type PayrollPeriodCalculation struct {
	CaregiverID        string             `json:"caregiver_id"`
	PeriodStart        time.Time          `json:"period_start"`
	PeriodEnd          time.Time          `json:"period_end"`
	TotalHours         float64            `json:"total_hours"`
	HourlyRate         float64            `json:"hourly_rate"`
	GrossPay           float64            `json:"gross_pay"`
	Deductions         float64            `json:"deductions"`
	DeductionBreakdown DeductionBreakdown `json:"deduction_breakdown"`
	NetPay             float64            `json:"net_pay"`
	Visits             []PayrollVisitLine `json:"visits"`
}

// PayrollRecord is a stored payroll row
type PayrollRecord struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	CaregiverID    string        `json:"caregiver_id" db:"caregiver_id"`
	PeriodStart    time.Time     `json:"period_start" db:"period_start"`
	PeriodEnd      time.Time     `json:"period_end" db:"period_end"`
	TotalHours     float64       `json:"total_hours" db:"total_hours"`
	HourlyRate     float64       `json:"hourly_rate" db:"hourly_rate"`
	GrossPay       float64       `json:"gross_pay" db:"gross_pay"`
	FederalTax     float64       `json:"federal_tax" db:"federal_tax"`
	StateTax       float64       `json:"state_tax" db:"state_tax"`
	FICA           float64       `json:"fica" db:"fica"`
	Deductions     float64       `json:"deductions" db:"deductions"`
	NetPay         float64       `json:"net_pay" db:"net_pay"`
	Status         PayrollStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// NewPayrollRecord builds a draft row from a calculation
func NewPayrollRecord(organizationID string, calc *PayrollPeriodCalculation) *PayrollRecord {
	return &PayrollRecord{
		OrganizationID: organizationID,
		CaregiverID:    calc.CaregiverID,
		PeriodStart:    calc.PeriodStart,
		PeriodEnd:      calc.PeriodEnd,
		TotalHours:     calc.TotalHours,
		HourlyRate:     calc.HourlyRate,
		GrossPay:       calc.GrossPay,
		FederalTax:     calc.DeductionBreakdown.Federal,
		StateTax:       calc.DeductionBreakdown.State,
		FICA:           calc.DeductionBreakdown.FICA,
		Deductions:     calc.Deductions,
		NetPay:         calc.NetPay,
		Status:         PayrollDraft,
	}
}
