package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/turndetection"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrSessionStarted = errors.New("session already started")

const eventQueueSize = 256

const (
	stageSTT        = "stt"
	stageTTS        = "tts"
	stageDecision   = "decision"
	stageGeneration = "generation"
	stageClient     = "client"
)

// Session binds one client connection to its conversation. All session state
// is mutated by the loop started with Run; collaborators only post events to
// it.
type Session struct {
	id     string
	logger *slog.Logger
	client ClientSink
	config sessionConfig

	speechToText         SpeechToText
	transcriptionOptions []speechtotext.TranscriptionOption
	textToSpeech         TextToSpeech
	llm                  LLMWithStream
	decider              turndetection.Decider

	events    chan sessionEvent
	stop      chan struct{}
	done      chan struct{}
	finished  chan struct{}
	postMu    sync.RWMutex
	closed    bool
	running   atomic.Bool
	closeOnce sync.Once

	epoch       atomic.Uint64
	recognizing atomic.Bool
	history     Turns

	// Owned by the loop.
	transcript      TranscriptAggregator
	timer           TurnTimer
	turnSeq         uint64
	recognitionOpen bool
	synthesis       synthesis
	generation      *generation
	pending         *generation
	greeting        *time.Timer
}

type sessionConfig struct {
	systemPrompt  string
	primedReply   string
	greeting      string
	greetingDelay time.Duration
	statusText    string
	encodingInfo  audio.EncodingInfo
	packetLatency time.Duration
}

// NewSession creates a session sending its output to client. Nothing is
// opened until Run is called.
func NewSession(client ClientSink, opts ...SessionOption) *Session {
	if client == nil {
		client = discardClient{}
	}

	s := &Session{
		id:      uuid.NewString(),
		logger:  logger,
		client:  client,
		decider: turndetection.NewHeuristic(),
		config: sessionConfig{
			systemPrompt:  DefaultSystemPrompt,
			primedReply:   DefaultPrimedReply,
			greeting:      DefaultGreeting,
			greetingDelay: DefaultGreetingDelay,
			statusText:    DefaultStatusText,
			encodingInfo:  audio.GetDefaultEncodingInfo(),
			packetLatency: DefaultPacketLatency,
		},
		events:   make(chan sessionEvent, eventQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("session_id", s.id)
	s.synthesis.aggregator = newAudioAggregatorFor(s.config.encodingInfo, s.config.packetLatency)

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Run opens recognition, schedules the greeting and processes session events
// until ctx is done or Close is called. Everything the session opened is
// closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.teardown(ctx)

	s.logger.Info("session started")
	s.startRecognition(ctx)
	if s.config.greeting != "" {
		s.greeting = time.AfterFunc(s.config.greetingDelay, func() {
			s.post(greetingEvent{})
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case event := <-s.events:
			s.handleEvent(ctx, event)
		}
	}
}

// Close stops the session loop. It does not wait for the teardown, use Done
// for that.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
}

// Done is closed once the session stopped and closed its collaborators.
func (s *Session) Done() <-chan struct{} {
	return s.finished
}

// Epoch is the id of the response currently allowed to reach the client.
func (s *Session) Epoch() uint64 {
	return s.epoch.Load()
}

// History returns a copy of the conversation so far.
func (s *Session) History() []llms.Turn {
	return s.history.Snapshot()
}

// post hands an event to the loop. It reports false once the loop stopped,
// the event is dropped in that case.
func (s *Session) post(event sessionEvent) bool {
	s.postMu.RLock()
	defer s.postMu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) teardown(ctx context.Context) {
	defer close(s.finished)
	close(s.done)
	s.postMu.Lock()
	s.closed = true
	s.postMu.Unlock()

	if s.greeting != nil {
		s.greeting.Stop()
	}
	s.timer.Cancel()
	s.transcript.Cancel()
	s.epoch.Add(1)
	s.dropPending()
	s.supersedeGeneration("session closed")

	var errs []error
drain:
	for {
		select {
		case event := <-s.events:
			if err := s.release(event); err != nil {
				errs = append(errs, err)
			}
		default:
			break drain
		}
	}

	if s.recognitionOpen {
		s.recognizing.Store(false)
		s.recognitionOpen = false
		if err := s.speechToText.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close speech to text: %w", err))
		}
	}
	if stream := s.synthesis.stream; stream != nil {
		s.synthesis.stream = nil
		if err := stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close speech stream: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("session teardown failed", "error", err)
	}
	s.logger.Info("session ended", "turns", s.history.Len())
}

// release closes resources carried by events the loop never got to.
func (s *Session) release(event sessionEvent) error {
	switch e := event.(type) {
	case recognitionOpenedEvent:
		if e.err == nil {
			s.recognitionOpen = true
		}
	case synthesisOpenedEvent:
		if e.stream != nil {
			if err := e.stream.Close(); err != nil {
				return fmt.Errorf("failed to close speech stream: %w", err)
			}
		}
	}
	return nil
}

func (s *Session) sendTranscript(text string, isFinal bool, sender Sender) {
	if err := s.client.SendTranscript(text, isFinal, sender); err != nil {
		s.logger.Debug("failed to send transcript", "stage", stageClient, "error", err)
	}
}

func (s *Session) sendStatus(text string) {
	if err := s.client.SendStatus(text); err != nil {
		s.logger.Debug("failed to send status", "stage", stageClient, "error", err)
	}
}

func (s *Session) sendAudio(ctx context.Context, packet []byte) {
	if err := s.client.SendAudio(packet); err != nil {
		s.logger.Debug("failed to send audio", "stage", stageClient, "error", err)
		return
	}
	if len(packet) > 0 {
		instruments.audioPackets.Add(ctx, 1)
		instruments.audioBytes.Add(ctx, int64(len(packet)))
	}
}

func (s *Session) sendResponseComplete() {
	if err := s.client.SendResponseComplete(); err != nil {
		s.logger.Debug("failed to send response complete", "stage", stageClient, "error", err)
	}
}

func epochAttribute(epoch uint64) attribute.KeyValue {
	return attribute.Int64("epoch", int64(epoch))
}
