// Package advisory implements the optional natural-language risk advisory
// on top of the OpenAI chat completions API.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/config"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPrompt = "You are a healthcare risk assessment expert. Provide accurate, evidence-based risk assessments."

// chatService is the slice of the OpenAI client the advisory uses
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client asks a chat model for a risk assessment in JSON form
type Client struct {
	chat        chatService
	model       string
	temperature float64
}

// NewClient builds a client from configuration. Callers check cfg.Enabled first.
func NewClient(cfg config.AdvisoryConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.AdvisoryUnavailable("advisory api key not configured", nil)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	// The engine owns the deadline; retries would only eat into it.
	opts = append(opts, option.WithMaxRetries(0))

	cli := openai.NewClient(opts...)
	return newClient(&cli.Chat.Completions, cfg.Model, cfg.Temperature), nil
}

func newClient(chat chatService, model string, temperature float64) *Client {
	return &Client{chat: chat, model: model, temperature: temperature}
}

// AssessRisk implements engine.AdvisoryService
func (c *Client) AssessRisk(ctx context.Context, in domain.RiskAssessmentInput) (domain.RiskAssessmentResult, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(in)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return domain.RiskAssessmentResult{}, errors.AdvisoryUnavailable("chat completion failed", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return domain.RiskAssessmentResult{}, errors.AdvisoryUnavailable("no choices returned", nil)
	}

	return parseResult(resp.Choices[0].Message.Content)
}

func buildPrompt(in domain.RiskAssessmentInput) string {
	var b strings.Builder
	b.WriteString("You are a healthcare risk assessment AI. Analyze the following patient data and provide a risk score (0-100) with factors and recommendations.\n\n")
	b.WriteString("Patient Data:\n")
	fmt.Fprintf(&b, "- Age: %d\n", in.Age)
	fmt.Fprintf(&b, "- Medical History: %s\n", strings.Join(in.MedicalHistory, ", "))
	fmt.Fprintf(&b, "- Recent Incidents: %d\n", in.RecentIncidents)
	fmt.Fprintf(&b, "- Missed Visits: %d\n", in.MissedVisits)
	fmt.Fprintf(&b, "- Medication Compliance: %g%%\n", in.MedicationCompliance)
	fmt.Fprintf(&b, "- Mobility Level: %s\n", in.MobilityLevel)
	fmt.Fprintf(&b, "- Cognitive Status: %s\n", in.CognitiveStatus)
	fmt.Fprintf(&b, "- Living Alone: %t\n\n", in.LivingAlone)
	b.WriteString(`Respond in JSON format:
{
  "riskScore": number (0-100),
  "riskLevel": "low" | "medium" | "high" | "critical",
  "factors": ["factor1", "factor2", ...],
  "recommendations": ["recommendation1", "recommendation2", ...]
}`)
	return b.String()
}

type payload struct {
	RiskScore       *float64 `json:"riskScore"`
	RiskLevel       string   `json:"riskLevel"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

// parseResult enforces the shape only; range and level checks live in the engine.
func parseResult(content string) (domain.RiskAssessmentResult, error) {
	var p payload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return domain.RiskAssessmentResult{}, errors.AdvisoryUnavailable("response is not a JSON object", err)
	}
	if p.RiskScore == nil {
		return domain.RiskAssessmentResult{}, errors.AdvisoryUnavailable("response missing riskScore", nil)
	}
	if *p.RiskScore != math.Trunc(*p.RiskScore) {
		return domain.RiskAssessmentResult{}, errors.AdvisoryUnavailable(fmt.Sprintf("riskScore %v is not an integer", *p.RiskScore), nil)
	}

	return domain.RiskAssessmentResult{
		RiskScore:       int(*p.RiskScore),
		RiskLevel:       domain.RiskLevel(p.RiskLevel),
		Factors:         p.Factors,
		Recommendations: p.Recommendations,
	}, nil
}
