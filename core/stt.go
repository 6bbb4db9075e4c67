package orchestration

import (
	"context"

	"github.com/koscakluka/ema-interview/core/speechtotext"
)

// startRecognition opens the recognizer in the background. Audio is dropped
// until it reports open.
func (s *Session) startRecognition(ctx context.Context) {
	if s.speechToText == nil {
		s.logger.Warn("no speech to text configured, user speech is ignored", "stage", stageSTT)
		return
	}

	opts := append([]speechtotext.TranscriptionOption{
		speechtotext.WithEncodingInfo(s.config.encodingInfo),
	}, s.transcriptionOptions...)
	opts = append(opts,
		speechtotext.WithPartialTranscriptionCallback(func(transcript string) {
			s.post(transcriptEvent{text: transcript, final: true})
		}),
		speechtotext.WithPartialInterimTranscriptionCallback(func(transcript string) {
			s.post(transcriptEvent{text: transcript})
		}),
		speechtotext.WithErrorCallback(func(err error) {
			s.logger.Warn("speech to text failed", "stage", stageSTT, "error", err)
		}),
		speechtotext.WithClosedCallback(func() {
			s.post(recognitionClosedEvent{})
		}),
	)

	go func() {
		err := panicSafeNamedWorker("speech to text opener", func(ctx context.Context) error {
			return s.speechToText.Transcribe(ctx, opts...)
		})(ctx)
		if !s.post(recognitionOpenedEvent{err: err}) && err == nil {
			_ = s.speechToText.Close()
		}
	}()
}

func (s *Session) handleRecognitionOpened(e recognitionOpenedEvent) {
	if e.err != nil {
		s.logger.Warn("failed to open speech to text", "stage", stageSTT, "error", e.err)
		return
	}
	s.recognitionOpen = true
	s.recognizing.Store(true)
	s.logger.Debug("speech to text opened", "stage", stageSTT)
}
