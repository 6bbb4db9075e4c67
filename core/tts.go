package orchestration

import (
	"context"

	"github.com/koscakluka/ema-interview/core/texttospeech"
)

// synthesis is the session's speech stream. It is opened lazily for the first
// response and reopened by the next response once it closed.
type synthesis struct {
	stream texttospeech.SpeechStream
	// id identifies the stream being opened or open, so that callbacks of a
	// previous stream are ignored.
	id      uint64
	opening bool

	// textEpoch is the epoch of the last text sent to the stream. Audio is
	// only forwarded while it is still current.
	textEpoch uint64
	// outstanding is set while text was sent that was not flushed yet.
	outstanding bool
	// flushEpoch is the epoch of the last flush sent to the stream.
	flushEpoch uint64
	// pendingClears counts clears the stream did not confirm yet. Audio
	// arriving before the confirmation belongs to dropped text.
	pendingClears int

	aggregator *AudioAggregator
}

// ensureSynthesis reports whether text can be sent right away. When it
// cannot, the stream is being opened and a synthesisOpenedEvent follows.
func (s *Session) ensureSynthesis(ctx context.Context) bool {
	if s.textToSpeech == nil || s.synthesis.stream != nil {
		return true
	}
	if s.synthesis.opening {
		return false
	}

	s.synthesis.opening = true
	s.synthesis.id++
	id := s.synthesis.id
	opts := []texttospeech.TextToSpeechOption{
		texttospeech.WithEncodingInfo(s.config.encodingInfo),
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			s.post(synthesisAudioEvent{id: id, audio: audio})
		}),
		texttospeech.WithFlushedCallback(func() {
			s.post(synthesisFlushedEvent{id: id})
		}),
		texttospeech.WithClearedCallback(func() {
			s.post(synthesisClearedEvent{id: id})
		}),
		texttospeech.WithErrorCallback(func(err error) {
			s.logger.Warn("speech stream failed", "stage", stageTTS, "error", err)
		}),
		texttospeech.WithClosedCallback(func() {
			s.post(synthesisClosedEvent{id: id})
		}),
	}

	go func() {
		var stream texttospeech.SpeechStream
		err := panicSafeNamedWorker("speech stream opener", func(ctx context.Context) error {
			var err error
			stream, err = s.textToSpeech.OpenStream(ctx, opts...)
			return err
		})(ctx)
		if !s.post(synthesisOpenedEvent{id: id, stream: stream, err: err}) && stream != nil {
			_ = stream.Close()
		}
	}()
	return false
}

func (s *Session) handleSynthesisOpened(ctx context.Context, e synthesisOpenedEvent) {
	if e.id != s.synthesis.id {
		if e.stream != nil {
			_ = e.stream.Close()
		}
		return
	}
	s.synthesis.opening = false

	if e.err != nil {
		s.logger.Warn("failed to open speech stream", "stage", stageTTS, "error", e.err)
		if s.pending != nil {
			s.pending.span.RecordError(e.err)
		}
		s.dropPending()
		return
	}

	s.logger.Debug("speech stream opened", "stage", stageTTS)
	s.synthesis.stream = e.stream
	s.synthesis.pendingClears = 0
	s.synthesis.outstanding = false
	s.synthesis.aggregator.Reset()

	if g := s.pending; g != nil {
		s.pending = nil
		if g.epoch != s.epoch.Load() {
			g.span.End()
			return
		}
		s.startGeneration(ctx, g)
	}
}

// forwardingAudio reports whether audio coming from the stream belongs to the
// current response.
func (s *Session) forwardingAudio() bool {
	return s.synthesis.pendingClears == 0 && s.synthesis.textEpoch == s.epoch.Load()
}

func (s *Session) handleSynthesisAudio(ctx context.Context, e synthesisAudioEvent) {
	if e.id != s.synthesis.id || !s.forwardingAudio() {
		return
	}
	for _, packet := range s.synthesis.aggregator.Add(e.audio) {
		s.sendAudio(ctx, packet)
	}
}

func (s *Session) handleSynthesisFlushed(ctx context.Context, e synthesisFlushedEvent) {
	if e.id != s.synthesis.id {
		return
	}
	// The flush covers everything sent so far unless text of a later
	// response followed it.
	if s.synthesis.textEpoch == s.synthesis.flushEpoch {
		s.synthesis.outstanding = false
	}
	if !s.forwardingAudio() {
		return
	}
	s.sendAudio(ctx, s.synthesis.aggregator.Flush())
}

func (s *Session) handleSynthesisCleared(e synthesisClearedEvent) {
	if e.id != s.synthesis.id || s.synthesis.pendingClears == 0 {
		return
	}
	s.synthesis.pendingClears--
	s.synthesis.aggregator.Reset()
}

func (s *Session) handleSynthesisClosed(e synthesisClosedEvent) {
	if e.id != s.synthesis.id {
		return
	}
	s.logger.Info("speech stream closed", "stage", stageTTS)
	s.synthesis.stream = nil
	s.synthesis.opening = false
	s.synthesis.outstanding = false
	s.synthesis.pendingClears = 0
	s.synthesis.aggregator.Reset()
}

// clearSynthesis drops the text and audio the stream still holds.
func (s *Session) clearSynthesis() {
	s.synthesis.aggregator.Reset()
	s.synthesis.outstanding = false
	stream := s.synthesis.stream
	if stream == nil {
		return
	}
	if err := stream.Clear(); err != nil {
		s.logger.Warn("failed to clear speech stream", "stage", stageTTS, "error", err)
		return
	}
	s.synthesis.pendingClears++
}
