package deepgram

import (
	"testing"

	"github.com/koscakluka/ema-interview/core/audio"
)

func audioInfo(sampleRate int) audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16}
}

func TestConvertEncoding(t *testing.T) {
	encoding, err := convertEncoding(audioInfo(16000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if encoding.SampleRate != 16000 || encoding.Format != encodingLinear16 {
		t.Fatalf("unexpected encoding: %+v", encoding)
	}

	if _, err := convertEncoding(audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}); err == nil {
		t.Fatalf("expected mulaw at 16kHz to be rejected")
	}
}
