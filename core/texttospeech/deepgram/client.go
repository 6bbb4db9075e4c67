package deepgram

import (
	"fmt"
	"slices"

	"github.com/gorilla/websocket"
)

const defaultSpeakURL = "wss://api.deepgram.com/v1/speak"

// TextToSpeechClient opens live speak streams. It holds no connection itself
// and can be shared between sessions.
type TextToSpeechClient struct {
	apiKey   string
	speakURL string
	dialer   *websocket.Dialer

	voice deepgramVoice
}

type ClientOption func(*TextToSpeechClient)

// WithSpeakURL points the client at a different speak endpoint.
func WithSpeakURL(speakURL string) ClientOption {
	return func(c *TextToSpeechClient) {
		if speakURL != "" {
			c.speakURL = speakURL
		}
	}
}

func NewTextToSpeechClient(apiKey string, voice deepgramVoice, opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		apiKey:   apiKey,
		speakURL: defaultSpeakURL,
		dialer:   websocket.DefaultDialer,
		voice:    defaultVoice,
	}

	if voice != "" {
		if !slices.Contains(GetAvailableVoices(), voice) {
			return nil, fmt.Errorf("invalid voice %q", voice)
		}
		client.voice = voice
	}

	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *TextToSpeechClient) Voice() string {
	return string(c.voice)
}
