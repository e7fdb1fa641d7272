package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Assessment result events
const (
	EventRiskAssessed        = "assessment.risk.completed"
	EventPerformanceAssessed = "assessment.performance.completed"
	EventVisitFraudFlagged   = "assessment.fraud.flagged"
	EventPayrollGenerated    = "payroll.generated"
)

// Batch trigger events
const (
	EventScheduleDailyRisk         = "schedule.daily_risk_scoring"
	EventScheduleWeeklyPerformance = "schedule.weekly_performance_scoring"
	EventSchedulePayroll           = "schedule.payroll_generation"
	EventScheduleFraudCheck        = "schedule.visit_fraud_detection"
)

// Exchange names
const (
	ExchangeAssessmentEvents = "assessment.events"
	ExchangeScheduleEvents   = "schedule.events"
	ExchangeDeadLetter       = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// RiskAssessedEvent is published after a patient risk assessment is stored
type RiskAssessedEvent struct {
	OrganizationID string   `json:"organization_id"`
	PatientID      string   `json:"patient_id"`
	RiskScore      int      `json:"risk_score"`
	RiskLevel      string   `json:"risk_level"`
	Factors        []string `json:"factors"`
	Advisory       bool     `json:"advisory"`
}

// PerformanceAssessedEvent is published after a caregiver performance assessment is stored
type PerformanceAssessedEvent struct {
	OrganizationID   string `json:"organization_id"`
	CaregiverID      string `json:"caregiver_id"`
	PerformanceScore int    `json:"performance_score"`
	Grade            string `json:"grade"`
}

// VisitFraudFlaggedEvent is published only for suspicious visits
type VisitFraudFlaggedEvent struct {
	OrganizationID string   `json:"organization_id"`
	VisitID        string   `json:"visit_id"`
	CaregiverID    string   `json:"caregiver_id"`
	Confidence     int      `json:"confidence"`
	Reasons        []string `json:"reasons"`
}

// PayrollGeneratedEvent summarizes one payroll generation run
type PayrollGeneratedEvent struct {
	OrganizationID string    `json:"organization_id"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	Generated      int       `json:"generated"`
	Omitted        int       `json:"omitted"`
	Skipped        int       `json:"skipped"`
}

// PayrollTrigger is the payload of EventSchedulePayroll
type PayrollTrigger struct {
	OrganizationID string `json:"organization_id"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
}

// FraudCheckTrigger is the payload of EventScheduleFraudCheck
type FraudCheckTrigger struct {
	OrganizationID string `json:"organization_id"`
	VisitID        string `json:"visit_id"`
}
