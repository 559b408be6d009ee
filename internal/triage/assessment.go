package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"minotaur/internal/agent"
	apperrors "minotaur/internal/errors"
	"minotaur/internal/model"
)

// Assessment is one reasoning step's answer.
type Assessment struct {
	Verdict        model.Verdict
	Confidence     float64
	Rationale      string
	Recommendation string
}

// Assessor judges whether a finding is plausibly exploitable.
type Assessor interface {
	Assess(ctx context.Context, c Context) (Assessment, error)
}

// AssessorFunc adapts a function to the Assessor interface.
type AssessorFunc func(ctx context.Context, c Context) (Assessment, error)

func (f AssessorFunc) Assess(ctx context.Context, c Context) (Assessment, error) {
	return f(ctx, c)
}

// LLMAssessor renders the triage prompt and asks an agent.
type LLMAssessor struct {
	Agent           agent.Agent
	MaxPromptTokens int
}

// NewLLMAssessor returns an assessor backed by a.
func NewLLMAssessor(a agent.Agent, maxPromptTokens int) *LLMAssessor {
	return &LLMAssessor{Agent: a, MaxPromptTokens: maxPromptTokens}
}

func (l *LLMAssessor) Assess(ctx context.Context, c Context) (Assessment, error) {
	prompt, err := c.Prompt(l.MaxPromptTokens)
	if err != nil {
		return Assessment{}, err
	}
	text, err := l.Agent.Send(ctx, prompt)
	if err != nil {
		return Assessment{}, err
	}
	return ParseAssessment(text)
}

type rawAssessment struct {
	Verdict        *string  `json:"verdict"`
	Confidence     *float64 `json:"confidence"`
	Rationale      string   `json:"rationale"`
	Reasoning      string   `json:"reasoning"`
	Recommendation string   `json:"recommendation"`
}

// ParseAssessment extracts and validates the JSON object in a model answer.
// Code fences and surrounding prose are tolerated; any missing or invalid
// field yields ErrMalformedResponse.
func ParseAssessment(text string) (Assessment, error) {
	text = stripFences(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Assessment{}, fmt.Errorf("%w: no JSON object in response", apperrors.ErrMalformedResponse)
	}

	var raw rawAssessment
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err)
	}

	if raw.Verdict == nil {
		return Assessment{}, fmt.Errorf("%w: missing verdict", apperrors.ErrMalformedResponse)
	}
	verdict, err := model.ParseVerdict(*raw.Verdict)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err)
	}

	if raw.Confidence == nil {
		return Assessment{}, fmt.Errorf("%w: missing confidence", apperrors.ErrMalformedResponse)
	}
	conf := *raw.Confidence
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return Assessment{}, fmt.Errorf("%w: confidence %v out of range", apperrors.ErrMalformedResponse, conf)
	}

	rationale := strings.TrimSpace(raw.Rationale)
	if rationale == "" {
		rationale = strings.TrimSpace(raw.Reasoning)
	}
	if rationale == "" {
		return Assessment{}, fmt.Errorf("%w: empty rationale", apperrors.ErrMalformedResponse)
	}

	return Assessment{
		Verdict:        verdict,
		Confidence:     conf,
		Rationale:      rationale,
		Recommendation: strings.TrimSpace(raw.Recommendation),
	}, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}
