// Package summary implements the clinical summary pipeline: journey alerts,
// prompt assembly, the guarded model call and response parsing with repair.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/oncocare/journey/internal/apperrors"
	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/llm"
	"github.com/oncocare/journey/pkg/circuitbreaker"
)

// Urgency labels the model must choose from.
const (
	UrgencyLow    = "Baixa"
	UrgencyMedium = "Média"
	UrgencyHigh   = "Alta"
)

// Result is the structured clinical summary extracted from a patient
// message. Array order is preserved as returned by the model.
type Result struct {
	Sintomas          []string `json:"sintomas"`
	PontosRelevantes  []string `json:"pontos_relevantes"`
	SugestaoPlanoAcao []string `json:"sugestao_plano_acao"`
	NivelUrgencia     string   `json:"nivel_urgencia"`
}

// Config bounds the model call.
type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns the call bounds used in production: low temperature
// for determinism, output capped well above the contract's size.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		MaxTokens:   500,
		Temperature: 0.3,
	}
}

// Service orchestrates summary generation. The model is an untrusted text
// generator: its JSON contract may be violated, so parsing has a repair step
// and every failure collapses into a typed error result.
type Service struct {
	client  llm.Client
	breaker *circuitbreaker.Breaker
	cfg     Config
	logger  *zap.Logger
	tracer  trace.Tracer

	// Clock supplies "today" for alert computation. Overridable in tests.
	Clock func() time.Time
}

// NewService constructs the pipeline. The breaker may be nil, in which case
// calls go to the client directly.
func NewService(client llm.Client, breaker *circuitbreaker.Breaker, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer("summary-service"),
		Clock:   time.Now,
	}
}

// Summarize runs the full pipeline for one patient message. Prior chat turns
// may be passed as history; roles other than system/user/assistant are
// dropped. The returned error is always an *apperrors.Error distinguishing
// an unavailable upstream from a malformed response.
func (s *Service) Summarize(ctx context.Context, p *patient.Patient, message string, history []llm.Message) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "summarize",
		trace.WithAttributes(attribute.String("patient_id", p.ID)))
	defer span.End()

	today := patient.DateOf(s.Clock())
	alerts := patient.ClinicalAlerts(p, today)
	span.SetAttributes(attribute.Int("alerts", len(alerts)))

	prompt := buildPrompt(p, alerts, message)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	for _, m := range history {
		switch m.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
			if m.Content != "" {
				messages = append(messages, m)
			}
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	raw, err := s.complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("model call failed",
			zap.String("patient_id", p.ID),
			zap.Error(err))
		return nil, apperrors.Upstream(err)
	}

	result, err := parseResult(raw)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("model response unparseable",
			zap.String("patient_id", p.ID),
			zap.Int("raw_len", len(raw)))
		return nil, apperrors.MalformedResponse(raw)
	}

	return result, nil
}

// complete runs the bounded model call, through the breaker when configured.
func (s *Service) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if s.breaker == nil {
		return s.client.Complete(ctx, req)
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// parseResult parses the raw model text as the four-key JSON object. When
// strict parsing fails (the model wrapped the JSON in prose), it retries on
// the substring between the first '{' and the last '}'.
func parseResult(raw string) (*Result, error) {
	if r, err := decodeResult(raw); err == nil {
		return r, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, apperrors.ErrMalformedResponse
	}
	return decodeResult(raw[start : end+1])
}

var errIncompleteResult = errors.New("summary object missing nivel_urgencia")

func decodeResult(text string) (*Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, err
	}
	r.normalize()
	// "null" and "{}" decode cleanly into a zero Result. The contract
	// always carries an urgency level, so its absence means the model
	// did not produce the object.
	if r.NivelUrgencia == "" {
		return nil, errIncompleteResult
	}
	return &r, nil
}

// normalize trims whitespace and guarantees non-nil arrays so an empty
// extraction serializes as [] rather than null.
func (r *Result) normalize() {
	r.Sintomas = trimAll(r.Sintomas)
	r.PontosRelevantes = trimAll(r.PontosRelevantes)
	r.SugestaoPlanoAcao = trimAll(r.SugestaoPlanoAcao)
	r.NivelUrgencia = strings.TrimSpace(r.NivelUrgencia)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
