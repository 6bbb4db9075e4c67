package deepgram

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultListenURL = "wss://api.deepgram.com/v1/listen"

var ErrNotConnected = errors.New("deepgram transcription stream is not open")

// TranscriptionClient streams audio to Deepgram's live listen endpoint. A
// client serves a single stream, create one per connection.
type TranscriptionClient struct {
	apiKey    string
	listenURL string
	dialer    *websocket.Dialer

	conn      *websocket.Conn
	connMu    sync.Mutex
	lastMsgTs time.Time
	closing   bool

	cancel context.CancelFunc
}

type ClientOption func(*TranscriptionClient)

// WithListenURL points the client at a different listen endpoint.
func WithListenURL(listenURL string) ClientOption {
	return func(c *TranscriptionClient) {
		if listenURL != "" {
			c.listenURL = listenURL
		}
	}
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		apiKey:    apiKey,
		listenURL: defaultListenURL,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}
