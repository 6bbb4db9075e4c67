package speechtotext

import (
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
)

const (
	DefaultModel             = "nova-3"
	DefaultLanguage          = "en-IN"
	DefaultKeepAliveInterval = 3 * time.Second
)

type TranscriptionOptions struct {
	// PartialInterimTranscriptionCallback is called with the interim text of
	// the fragment currently being recognized.
	PartialInterimTranscriptionCallback func(transcript string)
	// PartialTranscriptionCallback is called once for every finalized
	// fragment. Fragments are trimmed and never empty.
	PartialTranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// ErrorCallback is called when recognition fails mid-stream.
	ErrorCallback func(error)
	// ClosedCallback is called once the recognition stream is gone, whatever
	// the reason.
	ClosedCallback func()

	EncodingInfo      audio.EncodingInfo
	Model             string
	Language          string
	KeepAliveInterval time.Duration
}

func DefaultTranscriptionOptions() TranscriptionOptions {
	return TranscriptionOptions{
		EncodingInfo:      audio.GetDefaultEncodingInfo(),
		Model:             DefaultModel,
		Language:          DefaultLanguage,
		KeepAliveInterval: DefaultKeepAliveInterval,
	}
}

type TranscriptionOption func(*TranscriptionOptions)

func WithPartialTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialTranscriptionCallback = callback
	}
}

func WithPartialInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.PartialInterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithErrorCallback(callback func(error)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.ErrorCallback = callback }
}

func WithClosedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.ClosedCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

// WithKeepAliveInterval sets how long the stream may stay without audio
// before a keep-alive is sent. Zero or negative disables keep-alives.
func WithKeepAliveInterval(interval time.Duration) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.KeepAliveInterval = interval }
}
