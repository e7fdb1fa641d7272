package domain

import (
	"testing"
	"time"

	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{100, RiskCritical},
		{70, RiskCritical},
		{69, RiskHigh},
		{50, RiskHigh},
		{49, RiskMedium},
		{30, RiskMedium},
		{29, RiskLow},
		{0, RiskLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestGradeForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Grade
	}{
		{100, GradeA},
		{90, GradeA},
		{89, GradeB},
		{80, GradeB},
		{79, GradeC},
		{70, GradeC},
		{69, GradeD},
		{60, GradeD},
		{59, GradeF},
		{0, GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeForScore(tt.score), "score %d", tt.score)
	}
}

func TestIsSuspiciousConfidence(t *testing.T) {
	assert.False(t, IsSuspiciousConfidence(39))
	assert.True(t, IsSuspiciousConfidence(40))
}

func TestParseRiskLevel(t *testing.T) {
	l, ok := ParseRiskLevel("high")
	assert.True(t, ok)
	assert.Equal(t, RiskHigh, l)

	_, ok = ParseRiskLevel("severe")
	assert.False(t, ok)
}

func TestVisitRecord_Duration(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	d, ok := VisitRecord{ActualStart: &start, ActualEnd: &end}.Duration()
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, d)

	_, ok = VisitRecord{ActualStart: &start}.Duration()
	assert.False(t, ok)
}

func TestTimeWindow_Validate(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, TimeWindow{Start: start, End: start}.Validate("period"))

	err := TimeWindow{Start: start, End: start.Add(-time.Hour)}.Validate("period")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestPatient_AgeAt(t *testing.T) {
	p := &Patient{DateOfBirth: time.Date(1944, 6, 15, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, 79, p.AgeAt(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 80, p.AgeAt(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestPerformanceAssessmentInput_Validate(t *testing.T) {
	valid := PerformanceAssessmentInput{CaregiverID: "cg-1", TotalVisits: 10, CompletedVisits: 9, MissedVisits: 1, SatisfactionScores: []float64{4, 5}}
	assert.NoError(t, valid.Validate())

	tooMany := valid
	tooMany.CompletedVisits = 11
	var appErr *errors.AppError
	assert.True(t, errors.As(tooMany.Validate(), &appErr))
	assert.Equal(t, "must not exceed TotalVisits", appErr.Details["CompletedVisits"])

	badScore := valid
	badScore.SatisfactionScores = []float64{4, 6}
	assert.True(t, errors.Is(badScore.Validate(), errors.ErrValidation))
}

func TestRiskAssessmentInput_Validate(t *testing.T) {
	in := RiskAssessmentInput{PatientID: "p-1", Age: 70, MedicationCompliance: 80, MobilityLevel: MobilityIndependent, CognitiveStatus: CognitiveAlert}
	assert.NoError(t, in.Validate())

	in.MedicationCompliance = 120
	assert.True(t, errors.Is(in.Validate(), errors.ErrValidation))

	in.MedicationCompliance = 80
	in.MobilityLevel = "bedridden"
	assert.True(t, errors.Is(in.Validate(), errors.ErrValidation))
}
