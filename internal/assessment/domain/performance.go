package domain

// Grade is derived from a performance score
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeForScore maps a clamped 0..100 score to its grade band
func GradeForScore(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// PerformanceAssessmentInput aggregates a caregiver's recent service record
type PerformanceAssessmentInput struct {
	CaregiverID          string    `json:"caregiver_id" validate:"required"`
	TotalVisits          int       `json:"total_visits" validate:"gte=0"`
	CompletedVisits      int       `json:"completed_visits" validate:"gte=0,ltefield=TotalVisits"`
	MissedVisits         int       `json:"missed_visits" validate:"gte=0,ltefield=TotalVisits"`
	LateVisits           int       `json:"late_visits" validate:"gte=0,ltefield=TotalVisits"`
	AverageVisitDuration float64   `json:"average_visit_duration" validate:"gte=0"`
	SatisfactionScores   []float64 `json:"satisfaction_scores" validate:"dive,gte=1,lte=5"`
	IncidentsReported    int       `json:"incidents_reported" validate:"gte=0"`
	ComplianceIssues     int       `json:"compliance_issues" validate:"gte=0"`
}

// PerformanceAssessmentResult is the outcome of a performance assessment
type PerformanceAssessmentResult struct {
	PerformanceScore    int      `json:"performance_score"`
	Grade               Grade    `json:"grade"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}
