package orchestration

import (
	"context"
	"strings"

	"github.com/koscakluka/ema-interview/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// generation is one response, identified by the epoch it was started in.
type generation struct {
	epoch    uint64
	turns    []llms.Turn
	response strings.Builder
	span     trace.Span
}

// respond starts a new epoch and generates a response to the history as it
// is now. Whatever the previous epoch still had in flight is dropped.
func (s *Session) respond(ctx context.Context) {
	epoch := s.epoch.Add(1)
	s.dropPending()
	s.supersedeGeneration("superseded")
	if s.synthesis.outstanding {
		s.clearSynthesis()
	}

	s.sendStatus(s.config.statusText)

	_, span := tracer.Start(ctx, "respond", trace.WithAttributes(epochAttribute(epoch)))
	g := &generation{epoch: epoch, turns: s.history.Snapshot(), span: span}
	if s.llm == nil {
		s.logger.Warn("no llm configured, not responding", "stage", stageGeneration)
		span.End()
		return
	}

	if !s.ensureSynthesis(ctx) {
		s.pending = g
		return
	}
	s.startGeneration(ctx, g)
}

func (s *Session) startGeneration(ctx context.Context, g *generation) {
	s.generation = g
	go func() {
		var usage *llms.Usage
		err := panicSafeNamedWorker("generation", func(ctx context.Context) error {
			var err error
			usage, err = s.generate(ctx, g)
			return err
		})(trace.ContextWithSpan(ctx, g.span))
		s.post(generationDoneEvent{epoch: g.epoch, usage: usage, err: err})
	}()
}

// generate consumes the response stream, handing every piece of text to the
// loop. It gives up as soon as its epoch is no longer current.
func (s *Session) generate(ctx context.Context, g *generation) (*llms.Usage, error) {
	var usage *llms.Usage
	stream := s.llm.PromptWithStream(ctx, nil, s.promptOptions(g.turns)...)
	for chunk, err := range stream.Chunks(ctx) {
		if s.epoch.Load() != g.epoch {
			return usage, nil
		}
		if err != nil {
			return usage, err
		}

		switch chunk := chunk.(type) {
		case llms.StreamContentChunk:
			text := chunk.Content()
			if text == "" {
				continue
			}
			if !s.post(generationChunkEvent{epoch: g.epoch, text: text}) {
				return usage, nil
			}
		case llms.StreamUsageChunk:
			u := chunk.Usage()
			usage = &u
		}
	}
	return usage, nil
}

func (s *Session) promptOptions(turns []llms.Turn) []llms.PromptOption {
	opts := []llms.PromptOption{llms.WithSystemPrompt(s.config.systemPrompt)}
	if s.config.primedReply != "" {
		opts = append(opts, llms.WithTurns(
			llms.Turn{Role: llms.TurnRoleUser, Content: s.config.systemPrompt},
			llms.Turn{Role: llms.TurnRoleModel, Content: s.config.primedReply},
		))
	}
	return append(opts, llms.WithTurns(turns...))
}

func (s *Session) handleGenerationChunk(e generationChunkEvent) {
	g := s.generation
	if g == nil || g.epoch != e.epoch || e.epoch != s.epoch.Load() {
		return
	}

	if stream := s.synthesis.stream; stream != nil {
		if err := stream.SendText(e.text); err != nil {
			s.logger.Warn("failed to send text to speech", "stage", stageTTS, "error", err)
		} else {
			s.synthesis.textEpoch = e.epoch
			s.synthesis.outstanding = true
		}
	}
	s.sendTranscript(e.text, false, SenderAI)
	g.response.WriteString(e.text)
}

func (s *Session) handleGenerationDone(ctx context.Context, e generationDoneEvent) {
	g := s.generation
	if g == nil || g.epoch != e.epoch {
		if e.err != nil {
			s.logger.Debug("stale generation failed", "stage", stageGeneration, "epoch", e.epoch, "error", e.err)
		}
		return
	}
	s.generation = nil
	defer g.span.End()

	if e.usage != nil {
		g.span.SetAttributes(
			attribute.Int("usage.input_tokens", e.usage.InputTokens),
			attribute.Int("usage.output_tokens", e.usage.OutputTokens),
		)
	}

	if e.err != nil {
		g.span.RecordError(e.err)
		g.span.SetStatus(codes.Error, e.err.Error())
		instruments.generationsFailed.Add(ctx, 1)
		s.logger.Warn("response generation failed", "stage", stageGeneration, "epoch", e.epoch, "error", e.err)
		return
	}
	if e.epoch != s.epoch.Load() {
		return
	}

	response := g.response.String()
	s.history.Push(llms.Turn{Role: llms.TurnRoleModel, Content: response})
	if stream := s.synthesis.stream; stream != nil {
		if err := stream.Flush(); err != nil {
			s.logger.Warn("failed to flush speech", "stage", stageTTS, "error", err)
		} else {
			s.synthesis.flushEpoch = e.epoch
		}
	}
	s.sendResponseComplete()
	instruments.generationsCompleted.Add(ctx, 1)
	s.logger.Debug("response complete", "epoch", e.epoch, "length", len(response))
}

// supersedeGeneration forgets the generation in flight. Its worker notices
// the epoch change on its next chunk and stops.
func (s *Session) supersedeGeneration(reason string) {
	if s.generation == nil {
		return
	}
	s.generation.span.SetAttributes(attribute.String("superseded", reason))
	s.generation.span.End()
	s.generation = nil
}

func (s *Session) dropPending() {
	if s.pending == nil {
		return
	}
	s.pending.span.End()
	s.pending = nil
}
