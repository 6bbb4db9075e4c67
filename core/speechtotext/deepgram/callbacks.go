package deepgram

import "github.com/koscakluka/ema-interview/core/speechtotext"

type callbackConfig struct {
	partialInterimTranscriptionCallback func(string)
	partialTranscriptionCallback        func(string)
	startSpeechCallback                 func()
	endSpeechCallback                   func()
	errorCallback                       func(error)
	closedCallback                      func()
}

type websocketConfig struct {
	shouldDetectSpeechStart            bool
	shouldEnhanceSpeechEndingDetection bool
	shouldRequestInterimResults        bool
}

func newCallbackConfig(options speechtotext.TranscriptionOptions) (callbackConfig, websocketConfig) {
	callbacks := callbackConfig{
		partialInterimTranscriptionCallback: func(string) {},
		partialTranscriptionCallback:        func(string) {},
		startSpeechCallback:                 func() {},
		endSpeechCallback:                   func() {},
		errorCallback:                       func(error) {},
		closedCallback:                      func() {},
	}
	if options.PartialInterimTranscriptionCallback != nil {
		callbacks.partialInterimTranscriptionCallback = options.PartialInterimTranscriptionCallback
	}
	if options.PartialTranscriptionCallback != nil {
		callbacks.partialTranscriptionCallback = options.PartialTranscriptionCallback
	}
	if options.SpeechStartedCallback != nil {
		callbacks.startSpeechCallback = options.SpeechStartedCallback
	}
	if options.SpeechEndedCallback != nil {
		callbacks.endSpeechCallback = options.SpeechEndedCallback
	}
	if options.ErrorCallback != nil {
		callbacks.errorCallback = options.ErrorCallback
	}
	if options.ClosedCallback != nil {
		callbacks.closedCallback = options.ClosedCallback
	}

	return callbacks, websocketConfig{
		shouldDetectSpeechStart:            options.SpeechStartedCallback != nil,
		shouldEnhanceSpeechEndingDetection: options.SpeechEndedCallback != nil,
		shouldRequestInterimResults:        options.PartialInterimTranscriptionCallback != nil,
	}
}
