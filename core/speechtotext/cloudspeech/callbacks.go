package cloudspeech

import "github.com/koscakluka/ema-interview/core/speechtotext"

type callbackConfig struct {
	partialInterimTranscriptionCallback func(string)
	partialTranscriptionCallback        func(string)
	errorCallback                       func(error)
	closedCallback                      func()
}

func newCallbackConfig(options speechtotext.TranscriptionOptions) callbackConfig {
	callbacks := callbackConfig{
		partialInterimTranscriptionCallback: func(string) {},
		partialTranscriptionCallback:        func(string) {},
		errorCallback:                       func(error) {},
		closedCallback:                      func() {},
	}
	if options.PartialInterimTranscriptionCallback != nil {
		callbacks.partialInterimTranscriptionCallback = options.PartialInterimTranscriptionCallback
	}
	if options.PartialTranscriptionCallback != nil {
		callbacks.partialTranscriptionCallback = options.PartialTranscriptionCallback
	}
	if options.ErrorCallback != nil {
		callbacks.errorCallback = options.ErrorCallback
	}
	if options.ClosedCallback != nil {
		callbacks.closedCallback = options.ClosedCallback
	}
	return callbacks
}
