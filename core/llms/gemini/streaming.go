package gemini

import (
	"context"
	"time"

	"github.com/koscakluka/ema-interview/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// PromptWithStream prepares a streaming generation. Nothing is sent until the
// returned stream's chunks are iterated.
func (c *Client) PromptWithStream(_ context.Context, prompt *string, opts ...llms.PromptOption) llms.Stream {
	options := c.promptOptions(opts...)

	return &Stream{
		models:   c.models,
		model:    c.model,
		contents: toContents(options.Turns, prompt),
		config:   c.toConfig(options),
	}
}

type Stream struct {
	models models

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func(span trace.Span) {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(
			attribute.String("request.model", s.model),
			attribute.Int("request.contents", len(s.contents)),
		)

		requestToFirstTokenTime = time.Now()
		span.AddEvent("request started")
		for resp, err := range s.models.GenerateContentStream(ctx, s.model, s.contents, s.config) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "generation stream failed")
				yield(nil, err)
				return
			}
			setRequestToFirstTokenTime(span)

			reason := finishReason(resp)
			if content := resp.Text(); content != "" {
				if !yield(StreamContentChunk{finishReason: reason, content: content}, nil) {
					return
				}
			}

			if usage := resp.UsageMetadata; usage != nil && reason != nil {
				span.SetAttributes(
					attribute.Int("usage.input", int(usage.PromptTokenCount)),
					attribute.Int("usage.output", int(usage.CandidatesTokenCount)),
					attribute.Int("usage.total", int(usage.TotalTokenCount)),
				)
				if !yield(StreamUsageChunk{
					finishReason: reason,
					usage: llms.Usage{
						InputTokens:  int(usage.PromptTokenCount),
						OutputTokens: int(usage.CandidatesTokenCount),
						TotalTokens:  int(usage.TotalTokenCount),
					},
				}, nil) {
					return
				}
			}
		}
	}
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamUsageChunk) Usage() llms.Usage {
	return s.usage
}
