package texttospeech

import "github.com/koscakluka/ema-interview/core/audio"

type TextToSpeechOptions struct {
	// SpeechAudioCallback is called with every non-empty audio increment the
	// synthesizer produces, in order.
	SpeechAudioCallback func(audio []byte)
	// FlushedCallback is called once the synthesizer produced all audio for
	// the text sent before a [SpeechStream.Flush].
	FlushedCallback func()
	// ClearedCallback is called once the synthesizer confirmed a
	// [SpeechStream.Clear]. No audio for text sent before the clear follows.
	ClearedCallback func()
	// ErrorCallback is called when the stream fails, the stream is closed
	// afterwards.
	ErrorCallback func(error)
	// ClosedCallback is called once the stream is gone, whatever the reason.
	ClosedCallback func()

	EncodingInfo audio.EncodingInfo
}

func DefaultTextToSpeechOptions() TextToSpeechOptions {
	return TextToSpeechOptions{
		SpeechAudioCallback: func([]byte) {},
		FlushedCallback:     func() {},
		ClearedCallback:     func() {},
		ErrorCallback:       func(error) {},
		ClosedCallback:      func() {},
		EncodingInfo:        audio.GetDefaultEncodingInfo(),
	}
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.SpeechAudioCallback = callback
		}
	}
}

func WithFlushedCallback(callback func()) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.FlushedCallback = callback
		}
	}
}

func WithClearedCallback(callback func()) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.ClearedCallback = callback
		}
	}
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithClosedCallback(callback func()) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if callback != nil {
			o.ClosedCallback = callback
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// SpeechStream is a live synthesis stream. Speech is generated in the order
// text is sent.
type SpeechStream interface {
	// SendText queues more text to be spoken.
	SendText(string) error
	// Flush forces synthesis of all text sent so far, even if it does not end
	// a sentence.
	Flush() error
	// Clear drops all text and audio that was not delivered yet.
	Clear() error
	// Close closes the stream. Repeated calls are ignored.
	Close() error
}
