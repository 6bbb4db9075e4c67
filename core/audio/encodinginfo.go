package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

// EncodingInfo describes mono PCM audio as it travels between the client,
// the recognizer and the synthesizer.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

// BytesFor returns the number of bytes needed to hold d worth of audio. It
// always returns a whole number of samples.
func (e EncodingInfo) BytesFor(d time.Duration) int {
	sampleSize := e.Format.ByteSize()
	if sampleSize <= 0 || e.SampleRate <= 0 || d <= 0 {
		return 0
	}

	samples := int(int64(d) * int64(e.SampleRate) / int64(time.Second))
	return samples * sampleSize
}

// Duration returns how long n bytes of audio take to play.
func (e EncodingInfo) Duration(n int) time.Duration {
	sampleSize := e.Format.ByteSize()
	if sampleSize <= 0 || e.SampleRate <= 0 || n <= 0 {
		return 0
	}

	return time.Duration(int64(n/sampleSize) * int64(time.Second) / int64(e.SampleRate))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
