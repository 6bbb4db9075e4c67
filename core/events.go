package orchestration

import (
	"context"

	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	"github.com/koscakluka/ema-interview/core/turndetection"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type sessionEvent interface {
	sessionEvent()
}

type transcriptEvent struct {
	text  string
	final bool
}

type decisionEvent struct {
	seq      uint64
	decision turndetection.Decision
}

type turnTimerEvent struct{ seq uint64 }

type interruptEvent struct{}

type greetingEvent struct{}

type recognitionOpenedEvent struct{ err error }

type recognitionClosedEvent struct{}

type synthesisOpenedEvent struct {
	id     uint64
	stream texttospeech.SpeechStream
	err    error
}

type synthesisAudioEvent struct {
	id    uint64
	audio []byte
}

type synthesisFlushedEvent struct{ id uint64 }

type synthesisClearedEvent struct{ id uint64 }

type synthesisClosedEvent struct{ id uint64 }

type generationChunkEvent struct {
	epoch uint64
	text  string
}

type generationDoneEvent struct {
	epoch uint64
	usage *llms.Usage
	err   error
}

func (transcriptEvent) sessionEvent()        {}
func (decisionEvent) sessionEvent()          {}
func (turnTimerEvent) sessionEvent()         {}
func (interruptEvent) sessionEvent()         {}
func (greetingEvent) sessionEvent()          {}
func (recognitionOpenedEvent) sessionEvent() {}
func (recognitionClosedEvent) sessionEvent() {}
func (synthesisOpenedEvent) sessionEvent()   {}
func (synthesisAudioEvent) sessionEvent()    {}
func (synthesisFlushedEvent) sessionEvent()  {}
func (synthesisClearedEvent) sessionEvent()  {}
func (synthesisClosedEvent) sessionEvent()   {}
func (generationChunkEvent) sessionEvent()   {}
func (generationDoneEvent) sessionEvent()    {}

func (s *Session) handleEvent(ctx context.Context, event sessionEvent) {
	switch e := event.(type) {
	case transcriptEvent:
		s.handleTranscript(ctx, e)
	case decisionEvent:
		s.handleDecision(ctx, e)
	case turnTimerEvent:
		if e.seq != s.turnSeq {
			return
		}
		s.commitTurn(ctx)
	case interruptEvent:
		s.interrupt(ctx)
	case greetingEvent:
		s.logger.Debug("greeting")
		s.history.Push(llms.Turn{Role: llms.TurnRoleUser, Content: s.config.greeting})
		s.respond(ctx)
	case recognitionOpenedEvent:
		s.handleRecognitionOpened(e)
	case recognitionClosedEvent:
		s.recognizing.Store(false)
		s.logger.Info("speech to text closed", "stage", stageSTT)
	case synthesisOpenedEvent:
		s.handleSynthesisOpened(ctx, e)
	case synthesisAudioEvent:
		s.handleSynthesisAudio(ctx, e)
	case synthesisFlushedEvent:
		s.handleSynthesisFlushed(ctx, e)
	case synthesisClearedEvent:
		s.handleSynthesisCleared(e)
	case synthesisClosedEvent:
		s.handleSynthesisClosed(e)
	case generationChunkEvent:
		s.handleGenerationChunk(e)
	case generationDoneEvent:
		s.handleGenerationDone(ctx, e)
	}
}

func (s *Session) handleTranscript(ctx context.Context, e transcriptEvent) {
	if !e.final {
		s.sendTranscript(e.text, false, SenderUser)
		return
	}

	s.sendTranscript(e.text, true, SenderUser)
	if !s.transcript.Append(e.text) {
		return
	}

	// A new fragment invalidates every decision and timer of the previous
	// buffer; the timer is armed again once this buffer is decided.
	s.turnSeq++
	s.timer.Cancel()
	s.decide(ctx, s.turnSeq, s.transcript.Peek())
}

func (s *Session) decide(ctx context.Context, seq uint64, buffer string) {
	history := s.history.Snapshot()
	go func() {
		var decision turndetection.Decision
		err := panicSafeNamedWorker("turn decision", func(ctx context.Context) error {
			decision = s.decider.Decide(ctx, history, buffer)
			return nil
		})(ctx)
		if err != nil {
			s.logger.Warn("turn decision failed", "stage", stageDecision, "error", err)
			decision = turndetection.Fallback(s.decider)
		}
		s.post(decisionEvent{seq: seq, decision: decision})
	}()
}

func (s *Session) handleDecision(ctx context.Context, e decisionEvent) {
	if e.seq != s.turnSeq {
		s.logger.Debug("discarding stale turn decision", "stage", stageDecision, "seq", e.seq, "current_seq", s.turnSeq)
		return
	}

	instruments.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(e.decision.Status))))
	if e.decision.Unbounded {
		s.logger.Debug("turn decided, waiting for more speech", "stage", stageDecision, "status", e.decision.Status)
		return
	}

	s.logger.Debug("turn decided", "stage", stageDecision, "status", e.decision.Status, "wait", e.decision.Wait)
	seq := e.seq
	s.timer.Arm(e.decision.Wait, func() {
		s.post(turnTimerEvent{seq: seq})
	})
}

// commitTurn moves the pending transcript into the history and responds to
// it.
func (s *Session) commitTurn(ctx context.Context) {
	text := s.transcript.Commit()
	s.timer.Cancel()
	s.turnSeq++
	if text == "" {
		return
	}

	s.logger.Info("turn committed", "text", text)
	s.history.Push(llms.Turn{Role: llms.TurnRoleUser, Content: text})
	instruments.turnsCommitted.Add(ctx, 1)
	s.respond(ctx)
}

// interrupt drops everything in flight: the pending turn, the response being
// generated and the audio not yet played.
func (s *Session) interrupt(ctx context.Context) {
	epoch := s.epoch.Add(1)
	s.turnSeq++
	s.timer.Cancel()
	s.transcript.Cancel()
	s.dropPending()
	s.supersedeGeneration("interrupted")
	s.clearSynthesis()

	instruments.interruptions.Add(ctx, 1)
	s.logger.Info("interrupted", "epoch", epoch)
}
