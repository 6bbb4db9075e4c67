// Package llm decides turn completion by asking a language model to label the
// pending transcript.
package llm

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"runtime/debug"
	"strings"
	"text/template"
	"time"

	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/turndetection"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultShortWait   = 2000 * time.Millisecond
	DefaultLongWait    = turndetection.DefaultLongWait
	DefaultHistorySize = 3

	historySeparator = " | "
)

//go:embed decisionPrompt.tmpl
var decisionPromptTemplate string

var decisionPrompt = template.Must(template.New("decision").Parse(decisionPromptTemplate))

type LLM any

type LLMWithStructuredPrompt interface {
	PromptWithStructure(ctx context.Context, prompt string, outputSchema any, opts ...llms.PromptOption) error
}

type LLMWithGeneralPrompt interface {
	Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (string, error)
}

type decisionResponse struct {
	Status string `json:"status" jsonschema:"title=Status,description=Whether the user finished their turn,enum=complete,enum=thinking"`
}

type Decider struct {
	llm LLM

	shortWait   time.Duration
	longWait    time.Duration
	historySize int
}

type Option func(*Decider)

func WithWaits(short, long time.Duration) Option {
	return func(d *Decider) {
		if short > 0 {
			d.shortWait = short
		}
		if long > 0 {
			d.longWait = long
		}
	}
}

// WithHistorySize sets how many of the most recent turns are shown to the
// model.
func WithHistorySize(size int) Option {
	return func(d *Decider) {
		if size >= 0 {
			d.historySize = size
		}
	}
}

// NewDecider creates a model-assisted decider. llm must implement either
// [LLMWithStructuredPrompt] or [LLMWithGeneralPrompt]; structured prompting is
// preferred when both are available.
func NewDecider(llm LLM, opts ...Option) (*Decider, error) {
	switch llm.(type) {
	case LLMWithStructuredPrompt, LLMWithGeneralPrompt:
	default:
		return nil, fmt.Errorf("unsupported decision llm %T", llm)
	}

	d := &Decider{
		llm:         llm,
		shortWait:   DefaultShortWait,
		longWait:    DefaultLongWait,
		historySize: DefaultHistorySize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Decider) Decide(ctx context.Context, history []llms.Turn, buffer string) (decision turndetection.Decision) {
	ctx, span := tracer.Start(ctx, "decide turn")
	defer span.End()

	decision = d.Fallback()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in turn decision: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("turn decision panicked", "panic", r, "stack", string(debug.Stack()))
			decision = d.Fallback()
		}
		span.SetAttributes(attribute.String("decision.status", string(decision.Status)))
	}()

	status, err := d.classify(ctx, history, buffer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("turn decision failed, waiting longer", "error", err)
		return decision
	}

	if status == turndetection.StatusComplete {
		decision = turndetection.Decision{Status: turndetection.StatusComplete, Wait: d.shortWait}
	}
	return decision
}

// Fallback is the thinking decision used whenever the model cannot decide.
func (d *Decider) Fallback() turndetection.Decision {
	return turndetection.Decision{Status: turndetection.StatusThinking, Wait: d.longWait}
}

func (d *Decider) classify(ctx context.Context, history []llms.Turn, buffer string) (turndetection.Status, error) {
	prompt, err := renderPrompt(llms.LastTurns(history, d.historySize), buffer)
	if err != nil {
		return turndetection.StatusThinking, err
	}

	switch llm := d.llm.(type) {
	case LLMWithStructuredPrompt:
		resp := decisionResponse{}
		if err := llm.PromptWithStructure(ctx, prompt, &resp, llms.WithTemperature(0)); err != nil {
			return turndetection.StatusThinking, fmt.Errorf("failed to prompt turn classifier: %w", err)
		}
		return turndetection.ParseStatus(resp.Status), nil

	case LLMWithGeneralPrompt:
		response, err := llm.Prompt(ctx, prompt, llms.WithTemperature(0))
		if err != nil {
			return turndetection.StatusThinking, fmt.Errorf("failed to prompt turn classifier: %w", err)
		}
		if strings.TrimSpace(response) == "" {
			return turndetection.StatusThinking, fmt.Errorf("no response from turn classifier")
		}
		return turndetection.ParseStatus(response), nil
	}

	return turndetection.StatusThinking, fmt.Errorf("unsupported decision llm %T", d.llm)
}

func renderPrompt(history []llms.Turn, buffer string) (string, error) {
	var prompt bytes.Buffer
	if err := decisionPrompt.Execute(&prompt, struct {
		History string
		Input   string
	}{
		History: llms.JoinTurns(history, historySeparator),
		Input:   buffer,
	}); err != nil {
		return "", fmt.Errorf("failed to render decision prompt: %w", err)
	}
	return prompt.String(), nil
}
