package engine

import "github.com/careflow/careflow-backend/internal/assessment/domain"

// PerformanceEngine grades caregivers by subtracting penalties from 100.
// It never consults an advisory service.
type PerformanceEngine struct{}

// NewPerformanceEngine creates a performance engine
func NewPerformanceEngine() *PerformanceEngine {
	return &PerformanceEngine{}
}

// Assess validates the input and scores it. With zero total visits the
// completion, missed and late rules do not apply.
func (e *PerformanceEngine) Assess(in domain.PerformanceAssessmentInput) (domain.PerformanceAssessmentResult, error) {
	if err := in.Validate(); err != nil {
		return domain.PerformanceAssessmentResult{}, err
	}

	facts := derivePerformanceFacts(in)
	score := 100
	strengths := []string{}
	improvements := []string{}

	for _, tier := range performanceLadder {
		r, ok := tier.match(facts)
		if !ok {
			continue
		}
		score -= r.penalty(facts)
		if r.strength != "" {
			strengths = append(strengths, r.strength)
		}
		if r.improvement != "" {
			improvements = append(improvements, r.improvement)
		}
	}

	if len(strengths) == 0 {
		strengths = append(strengths, defaultStrength)
	}

	score = clamp(score, 0, 100)
	return domain.PerformanceAssessmentResult{
		PerformanceScore:    score,
		Grade:               domain.GradeForScore(score),
		Strengths:           strengths,
		AreasForImprovement: improvements,
	}, nil
}
