package orchestration

import (
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
)

// AudioAggregator re-chunks bursty synthesis output into packets of at least
// minSize bytes. It is owned by the session loop and is not safe for
// concurrent use.
type AudioAggregator struct {
	minSize int
	buffer  []byte
}

func NewAudioAggregator(minSize int) *AudioAggregator {
	if minSize < 1 {
		minSize = 1
	}
	return &AudioAggregator{minSize: minSize}
}

// newAudioAggregatorFor sizes packets to hold latency worth of audio in the
// given encoding.
func newAudioAggregatorFor(encodingInfo audio.EncodingInfo, latency time.Duration) *AudioAggregator {
	return NewAudioAggregator(encodingInfo.BytesFor(latency))
}

// Add appends chunk and returns every full packet of exactly the minimum
// size the buffer now holds, leaving the remainder buffered.
func (a *AudioAggregator) Add(chunk []byte) [][]byte {
	a.buffer = append(a.buffer, chunk...)

	var packets [][]byte
	for len(a.buffer) >= a.minSize {
		packet := make([]byte, a.minSize)
		copy(packet, a.buffer[:a.minSize])
		packets = append(packets, packet)
		a.buffer = a.buffer[a.minSize:]
	}
	if len(a.buffer) == 0 {
		a.buffer = nil
	}
	return packets
}

// Flush returns whatever is buffered, possibly nothing, and resets.
func (a *AudioAggregator) Flush() []byte {
	return a.take()
}

// Reset drops the buffered audio.
func (a *AudioAggregator) Reset() {
	a.buffer = nil
}

func (a *AudioAggregator) Buffered() int {
	return len(a.buffer)
}

func (a *AudioAggregator) MinSize() int {
	return a.minSize
}

func (a *AudioAggregator) take() []byte {
	packet := a.buffer
	if packet == nil {
		packet = []byte{}
	}
	a.buffer = nil
	return packet
}
