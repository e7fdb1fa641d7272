package domain

// MobilityLevel describes how much help a patient needs to move around
type MobilityLevel string

const (
	MobilityIndependent MobilityLevel = "independent"
	MobilityAssisted    MobilityLevel = "assisted"
	MobilityDependent   MobilityLevel = "dependent"
)

// CognitiveStatus describes a patient's cognitive state
type CognitiveStatus string

const (
	CognitiveAlert    CognitiveStatus = "alert"
	CognitiveConfused CognitiveStatus = "confused"
	CognitiveImpaired CognitiveStatus = "impaired"
)

// RiskLevel is derived from a risk score, never set independently
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelForScore maps a clamped 0..100 score to its level
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ParseRiskLevel reports whether s names one of the four levels
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch l := RiskLevel(s); l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return l, true
	}
	return "", false
}

// RiskAssessmentInput is a patient snapshot assembled by the caller
type RiskAssessmentInput struct {
	PatientID            string          `json:"patient_id" validate:"required"`
	Age                  int             `json:"age" validate:"gte=0"`
	MedicalHistory       []string        `json:"medical_history"`
	RecentIncidents      int             `json:"recent_incidents" validate:"gte=0"`
	MissedVisits         int             `json:"missed_visits" validate:"gte=0"`
	MedicationCompliance float64         `json:"medication_compliance" validate:"gte=0,lte=100"`
	MobilityLevel        MobilityLevel   `json:"mobility_level" validate:"oneof=independent assisted dependent"`
	CognitiveStatus      CognitiveStatus `json:"cognitive_status" validate:"oneof=alert confused impaired"`
	LivingAlone          bool            `json:"living_alone"`
}

// RiskAssessmentResult is the outcome of a risk assessment
type RiskAssessmentResult struct {
	RiskScore       int       `json:"risk_score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
}
