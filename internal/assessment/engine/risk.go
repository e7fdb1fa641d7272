package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	apperrors "github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/metrics"
)

// DefaultAdvisoryTimeout bounds a single advisory call
const DefaultAdvisoryTimeout = 10 * time.Second

// Fallback reasons, used as the metrics label
const (
	FallbackTimeout         = "timeout"
	FallbackCancelled       = "cancelled"
	FallbackError           = "error"
	FallbackPanic           = "panic"
	FallbackInvalidResponse = "invalid_response"
)

// RiskOutcome is a risk result plus how it was produced
type RiskOutcome struct {
	Result         domain.RiskAssessmentResult
	Path           string
	FallbackReason string
}

// RiskEngine scores patient risk. The deterministic ladder is always
// available; the advisory service, when set, is consulted first.
type RiskEngine struct {
	advisory AdvisoryService
	timeout  time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// RiskOption configures a RiskEngine
type RiskOption func(*RiskEngine)

// WithAdvisoryTimeout overrides DefaultAdvisoryTimeout
func WithAdvisoryTimeout(d time.Duration) RiskOption {
	return func(e *RiskEngine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRiskLogger sets the logger used for fallback warnings
func WithRiskLogger(log *logger.Logger) RiskOption {
	return func(e *RiskEngine) { e.logger = log }
}

// WithRiskMetrics sets the collectors for path and fallback counts
func WithRiskMetrics(m *metrics.Metrics) RiskOption {
	return func(e *RiskEngine) { e.metrics = m }
}

// NewRiskEngine creates a risk engine. advisory may be nil.
func NewRiskEngine(advisory AdvisoryService, opts ...RiskOption) *RiskEngine {
	e := &RiskEngine{
		advisory: advisory,
		timeout:  DefaultAdvisoryTimeout,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assess never fails: any advisory problem degrades to ScoreRisk.
func (e *RiskEngine) Assess(ctx context.Context, in domain.RiskAssessmentInput) domain.RiskAssessmentResult {
	return e.Evaluate(ctx, in).Result
}

// Evaluate is Assess with provenance
func (e *RiskEngine) Evaluate(ctx context.Context, in domain.RiskAssessmentInput) RiskOutcome {
	defer e.metrics.ObserveEngine("risk", time.Now())

	if e.advisory != nil {
		result, err := e.consult(ctx, in)
		if err == nil {
			e.metrics.AssessmentCompleted("risk", metrics.PathAdvisory)
			return RiskOutcome{Result: result, Path: metrics.PathAdvisory}
		}

		reason := fallbackReason(err)
		e.logger.Warn().
			Err(err).
			Str("patient_id", in.PatientID).
			Str("reason", reason).
			Msg("advisory risk assessment failed, using deterministic scoring")
		e.metrics.AdvisoryFallback(reason)

		e.metrics.AssessmentCompleted("risk", metrics.PathDeterministic)
		return RiskOutcome{Result: ScoreRisk(in), Path: metrics.PathDeterministic, FallbackReason: reason}
	}

	e.metrics.AssessmentCompleted("risk", metrics.PathDeterministic)
	return RiskOutcome{Result: ScoreRisk(in), Path: metrics.PathDeterministic}
}

type advisoryReply struct {
	result domain.RiskAssessmentResult
	err    error
}

var (
	errAdvisoryPanic   = errors.New("advisory service panicked")
	errInvalidResponse = errors.New("advisory response rejected")
)

func (e *RiskEngine) consult(ctx context.Context, in domain.RiskAssessmentInput) (domain.RiskAssessmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Buffered so an abandoned call can still complete its send.
	replies := make(chan advisoryReply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				replies <- advisoryReply{err: fmt.Errorf("%w: %v", errAdvisoryPanic, r)}
			}
		}()
		res, err := e.advisory.AssessRisk(ctx, cloneRiskInput(in))
		replies <- advisoryReply{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.RiskAssessmentResult{}, apperrors.AdvisoryUnavailable("advisory call did not finish", ctx.Err())
	case reply := <-replies:
		if reply.err != nil {
			return domain.RiskAssessmentResult{}, reply.err
		}
		return acceptAdvisory(reply.result)
	}
}

// acceptAdvisory checks an advisory result against the result schema and
// re-derives the level so it always agrees with the score.
func acceptAdvisory(res domain.RiskAssessmentResult) (domain.RiskAssessmentResult, error) {
	if res.RiskScore < 0 || res.RiskScore > 100 {
		return domain.RiskAssessmentResult{}, fmt.Errorf("%w: risk score %d out of range", errInvalidResponse, res.RiskScore)
	}
	if _, ok := domain.ParseRiskLevel(string(res.RiskLevel)); !ok {
		return domain.RiskAssessmentResult{}, fmt.Errorf("%w: unknown risk level %q", errInvalidResponse, res.RiskLevel)
	}

	out := domain.RiskAssessmentResult{
		RiskScore:       res.RiskScore,
		RiskLevel:       domain.RiskLevelForScore(res.RiskScore),
		Factors:         append([]string{}, res.Factors...),
		Recommendations: append([]string{}, res.Recommendations...),
	}
	if len(out.Recommendations) == 0 {
		out.Recommendations = []string{defaultRiskRecommendation}
	}
	return out, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FallbackTimeout
	case errors.Is(err, context.Canceled):
		return FallbackCancelled
	case errors.Is(err, errAdvisoryPanic):
		return FallbackPanic
	case errors.Is(err, errInvalidResponse):
		return FallbackInvalidResponse
	default:
		return FallbackError
	}
}

// ScoreRisk is the deterministic risk path
func ScoreRisk(in domain.RiskAssessmentInput) domain.RiskAssessmentResult {
	sum := 0
	factors := []string{}
	recommendations := []string{}

	for _, tier := range riskLadder {
		r, ok := tier.match(in)
		if !ok {
			continue
		}
		sum += r.points
		if r.factor != "" {
			factors = append(factors, r.factor)
		}
		if r.recommendation != "" {
			recommendations = append(recommendations, r.recommendation)
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, defaultRiskRecommendation)
	}

	score := clamp(sum, 0, 100)
	return domain.RiskAssessmentResult{
		RiskScore:       score,
		RiskLevel:       domain.RiskLevelForScore(score),
		Factors:         factors,
		Recommendations: recommendations,
	}
}

func cloneRiskInput(in domain.RiskAssessmentInput) domain.RiskAssessmentInput {
	in.MedicalHistory = append([]string(nil), in.MedicalHistory...)
	return in
}
