package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-interview/core/audio"
)

// Client is a blocking duplex PortAudio stream. Capture reads happen on the
// goroutine started by StartCapture, playback writes on the caller of
// SendAudio.
type Client struct {
	bufferSize   int
	encodingInfo audio.EncodingInfo
	stream       *portaudio.Stream

	in []int16

	outMu         sync.Mutex
	out           []int16
	leftoverAudio []byte
}

func NewClient(bufferSize int, encodingInfo audio.EncodingInfo) (*Client, error) {
	if bufferSize <= 0 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", bufferSize)
	}
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}
	if encodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported encoding %q, only linear16 can be played", encodingInfo.Format.Name())
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, float64(encodingInfo.SampleRate), bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		bufferSize:   bufferSize,
		encodingInfo: encodingInfo,
		stream:       stream,
		in:           in,
		out:          out,
	}, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	go func() {
		for ctx.Err() == nil {
			if err := c.stream.Read(); err != nil {
				if errors.Is(err, portaudio.InputOverflowed) {
					continue
				}
				return
			}

			frame := make([]byte, 2*len(c.in))
			for i, sample := range c.in {
				binary.LittleEndian.PutUint16(frame[2*i:], uint16(sample))
			}
			onAudio(frame)
		}
	}()
	return nil
}

// SendAudio plays every full buffer of audio and keeps the remainder for the
// next call.
func (c *Client) SendAudio(audio []byte) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()

	bufferBytes := 2 * c.bufferSize
	pending := append(c.leftoverAudio, audio...)
	for len(pending) >= bufferBytes {
		for i := range c.out {
			c.out[i] = int16(binary.LittleEndian.Uint16(pending[2*i:]))
		}
		if err := c.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			c.leftoverAudio = nil
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
		pending = pending[bufferBytes:]
	}
	c.leftoverAudio = append([]byte(nil), pending...)
	return nil
}

func (c *Client) ClearBuffer() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.leftoverAudio = nil
}

func (c *Client) Close() error {
	return errors.Join(
		c.stream.Stop(),
		c.stream.Close(),
		portaudio.Terminate(),
	)
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}
