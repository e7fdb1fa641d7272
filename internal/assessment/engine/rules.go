package engine

import "github.com/careflow/careflow-backend/internal/assessment/domain"

// riskRule adds points when its predicate holds
type riskRule struct {
	name           string
	when           func(domain.RiskAssessmentInput) bool
	points         int
	factor         string
	recommendation string
}

// A tier fires at most one rule: the first whose predicate holds.
type riskTier []riskRule

const defaultRiskRecommendation = "Continue standard care protocol"

var riskLadder = []riskTier{
	{
		{name: "age_over_75", when: func(in domain.RiskAssessmentInput) bool { return in.Age > 75 }, points: 15, factor: "Advanced age (>75)"},
		{name: "age_over_65", when: func(in domain.RiskAssessmentInput) bool { return in.Age > 65 }, points: 10},
	},
	{
		{name: "incidents_over_2", when: func(in domain.RiskAssessmentInput) bool { return in.RecentIncidents > 2 }, points: 20,
			factor: "Multiple recent incidents", recommendation: "Increase visit frequency"},
		{name: "incidents_any", when: func(in domain.RiskAssessmentInput) bool { return in.RecentIncidents > 0 }, points: 10},
	},
	{
		{name: "missed_over_3", when: func(in domain.RiskAssessmentInput) bool { return in.MissedVisits > 3 }, points: 15,
			factor: "Frequent missed visits", recommendation: "Contact patient and emergency contact"},
		{name: "missed_any", when: func(in domain.RiskAssessmentInput) bool { return in.MissedVisits > 0 }, points: 8},
	},
	{
		{name: "compliance_under_60", when: func(in domain.RiskAssessmentInput) bool { return in.MedicationCompliance < 60 }, points: 20,
			factor: "Poor medication compliance", recommendation: "Implement medication management system"},
		{name: "compliance_under_80", when: func(in domain.RiskAssessmentInput) bool { return in.MedicationCompliance < 80 }, points: 10},
	},
	{
		{name: "mobility_dependent", when: func(in domain.RiskAssessmentInput) bool { return in.MobilityLevel == domain.MobilityDependent }, points: 15,
			factor: "Dependent mobility"},
		{name: "mobility_assisted", when: func(in domain.RiskAssessmentInput) bool { return in.MobilityLevel == domain.MobilityAssisted }, points: 8},
	},
	{
		{name: "cognitive_impaired", when: func(in domain.RiskAssessmentInput) bool { return in.CognitiveStatus == domain.CognitiveImpaired }, points: 20,
			factor: "Cognitive impairment", recommendation: "Consider memory care services"},
		{name: "cognitive_confused", when: func(in domain.RiskAssessmentInput) bool { return in.CognitiveStatus == domain.CognitiveConfused }, points: 12},
	},
	{
		{name: "living_alone", when: func(in domain.RiskAssessmentInput) bool { return in.LivingAlone }, points: 10,
			factor: "Living alone", recommendation: "Daily check-in calls recommended"},
	},
}

func (t riskTier) match(in domain.RiskAssessmentInput) (riskRule, bool) {
	for _, r := range t {
		if r.when(in) {
			return r, true
		}
	}
	return riskRule{}, false
}

// performanceFacts are the rates derived once per assessment
type performanceFacts struct {
	in              domain.PerformanceAssessmentInput
	hasVisits       bool
	completionRate  float64
	missedRate      float64
	lateRate        float64
	hasSatisfaction bool
	satisfaction    float64
}

func derivePerformanceFacts(in domain.PerformanceAssessmentInput) performanceFacts {
	f := performanceFacts{in: in}

	if in.TotalVisits > 0 {
		total := float64(in.TotalVisits)
		f.hasVisits = true
		f.completionRate = float64(in.CompletedVisits) / total * 100
		f.missedRate = float64(in.MissedVisits) / total * 100
		f.lateRate = float64(in.LateVisits) / total * 100
	}

	if len(in.SatisfactionScores) > 0 {
		var sum float64
		for _, s := range in.SatisfactionScores {
			sum += s
		}
		f.hasSatisfaction = true
		f.satisfaction = sum / float64(len(in.SatisfactionScores))
	}

	return f
}

// performanceRule subtracts penalty(f) points when its predicate holds
type performanceRule struct {
	name        string
	when        func(performanceFacts) bool
	penalty     func(performanceFacts) int
	strength    string
	improvement string
}

type performanceTier []performanceRule

const defaultStrength = "Meets basic requirements"

func fixed(n int) func(performanceFacts) int {
	return func(performanceFacts) int { return n }
}

var performanceLadder = []performanceTier{
	{
		{name: "completion_excellent", when: func(f performanceFacts) bool { return f.hasVisits && f.completionRate >= 95 },
			penalty: fixed(0), strength: "Excellent visit completion rate"},
		{name: "completion_poor", when: func(f performanceFacts) bool { return f.hasVisits && f.completionRate < 85 },
			penalty: fixed(15), improvement: "Improve visit completion rate"},
		{name: "completion_fair", when: func(f performanceFacts) bool { return f.hasVisits },
			penalty: fixed(5)},
	},
	{
		{name: "missed_over_5pct", when: func(f performanceFacts) bool { return f.hasVisits && f.missedRate > 5 },
			penalty: fixed(20), improvement: "Reduce missed visits"},
	},
	{
		{name: "punctuality_excellent", when: func(f performanceFacts) bool { return f.hasVisits && f.lateRate < 5 },
			penalty: fixed(0), strength: "Excellent punctuality"},
		{name: "punctuality_poor", when: func(f performanceFacts) bool { return f.hasVisits && f.lateRate > 15 },
			penalty: fixed(15), improvement: "Improve punctuality"},
		{name: "punctuality_fair", when: func(f performanceFacts) bool { return f.hasVisits },
			penalty: fixed(5)},
	},
	{
		{name: "satisfaction_high", when: func(f performanceFacts) bool { return f.hasSatisfaction && f.satisfaction >= 4.5 },
			penalty: fixed(0), strength: "High patient satisfaction"},
		{name: "satisfaction_low", when: func(f performanceFacts) bool { return f.hasSatisfaction && f.satisfaction < 3.5 },
			penalty: fixed(20), improvement: "Improve patient satisfaction"},
		{name: "satisfaction_fair", when: func(f performanceFacts) bool { return f.hasSatisfaction && f.satisfaction < 4.0 },
			penalty: fixed(10)},
	},
	{
		{name: "incidents_over_3", when: func(f performanceFacts) bool { return f.in.IncidentsReported > 3 },
			penalty: fixed(15), improvement: "Focus on safety protocols"},
	},
	{
		{name: "compliance_issues", when: func(f performanceFacts) bool { return f.in.ComplianceIssues > 0 },
			penalty: func(f performanceFacts) int { return 10 * f.in.ComplianceIssues }, improvement: "Address compliance issues"},
	},
	{
		{name: "short_visits", when: func(f performanceFacts) bool { return f.in.AverageVisitDuration < 30 },
			penalty: fixed(10), improvement: "Ensure adequate visit duration"},
	},
}

func (t performanceTier) match(f performanceFacts) (performanceRule, bool) {
	for _, r := range t {
		if r.when(f) {
			return r, true
		}
	}
	return performanceRule{}, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
