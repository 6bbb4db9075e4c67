package orchestration

import (
	"context"
	"log/slog"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	"github.com/koscakluka/ema-interview/core/turndetection"
)

type SessionOption func(*Session)

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	Close() error
}

// WithSpeechToTextClient sets the recognizer. A recognizer holds a single
// live stream, so every session needs its own.
func WithSpeechToTextClient(client SpeechToText) SessionOption {
	return func(s *Session) { s.speechToText = client }
}

// WithTranscriptionOptions are passed to the recognizer when the session
// opens it. The session's own callbacks always take precedence.
func WithTranscriptionOptions(opts ...speechtotext.TranscriptionOption) SessionOption {
	return func(s *Session) {
		s.transcriptionOptions = append(s.transcriptionOptions, opts...)
	}
}

type TextToSpeech interface {
	OpenStream(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechStream, error)
}

func WithTextToSpeechClient(client TextToSpeech) SessionOption {
	return func(s *Session) { s.textToSpeech = client }
}

type LLMWithStream interface {
	PromptWithStream(ctx context.Context, prompt *string, opts ...llms.PromptOption) llms.Stream
}

func WithStreamingLLM(client LLMWithStream) SessionOption {
	return func(s *Session) { s.llm = client }
}

func WithTurnDecider(decider turndetection.Decider) SessionOption {
	return func(s *Session) {
		if decider != nil {
			s.decider = decider
		}
	}
}

// WithSystemPrompt sets the instructions the generator is seeded with. The
// same text opens the primed exchange.
func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) {
		if prompt != "" {
			s.config.systemPrompt = prompt
		}
	}
}

// WithPrimedReply sets the model's reply in the primed exchange. An empty
// reply drops the primed exchange.
func WithPrimedReply(reply string) SessionOption {
	return func(s *Session) { s.config.primedReply = reply }
}

// WithGreeting makes the session open the conversation by committing prompt
// as the first user turn after delay. An empty prompt disables it.
func WithGreeting(prompt string, delay time.Duration) SessionOption {
	return func(s *Session) {
		s.config.greeting = prompt
		s.config.greetingDelay = max(delay, 0)
	}
}

// WithStatusText sets the status label sent when a response starts.
func WithStatusText(text string) SessionOption {
	return func(s *Session) {
		if text != "" {
			s.config.statusText = text
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SessionOption {
	return func(s *Session) {
		if !encodingInfo.IsZero() {
			s.config.encodingInfo = encodingInfo
		}
	}
}

// WithPacketLatency sets how much audio every packet sent to the client holds
// at least, except for the last packet of a response.
func WithPacketLatency(latency time.Duration) SessionOption {
	return func(s *Session) {
		if latency > 0 {
			s.config.packetLatency = latency
		}
	}
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}
