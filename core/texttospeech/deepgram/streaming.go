package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const closeTimeout = 2 * time.Second

var errStreamClosed = errors.New("speech stream closed")

type speechStream struct {
	ws *websocket.Conn
	mu sync.Mutex

	// Deepgram drops text sent after a flush until the flush is confirmed,
	// such text waits in pendingText.
	awaitingFlush bool
	pendingText   strings.Builder
	pendingFlush  bool

	closed bool

	options texttospeech.TextToSpeechOptions
}

// OpenStream opens a live speak stream. Audio and lifecycle events are
// reported through the callbacks in opts.
func (c *TextToSpeechClient) OpenStream(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechStream, error) {
	ctx, span := tracer.Start(ctx, "open synthesis stream")
	defer span.End()
	span.SetAttributes(attribute.String("tts.voice", string(c.voice)))

	options := texttospeech.DefaultTextToSpeechOptions()
	for _, opt := range opts {
		opt(&options)
	}

	ws, err := c.connectWebsocket(ctx, options.EncodingInfo)
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stream := &speechStream{ws: ws, options: options}
	go stream.processIncomingMessages()

	return stream, nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	speakUrl, err := url.Parse(c.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}
	urlValues := speakUrl.Query()
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(c.voice))
	urlValues.Set("container", "none")
	speakUrl.RawQuery = urlValues.Encode()

	conn, _, err := c.dialer.DialContext(ctx, speakUrl.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *speechStream) processIncomingMessages() {
	defer r.options.ClosedCallback()

	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.closed = true
			r.mu.Unlock()
			r.ws.Close()

			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("speech stream read failed", "error", err)
				r.options.ErrorCallback(fmt.Errorf("speech stream ended: %w", err))
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				if err := r.sendPending(); err != nil {
					logger.Warn("failed to send text held during flush", "error", err)
				}
				r.options.FlushedCallback()
			case "Cleared":
				r.options.ClearedCallback()
			case "Warning", "Error":
				logger.Warn("deepgram speak message", "type", parsedMsg.Type, "message", string(msg))
			}
		}
	}
}

func (r *speechStream) SendText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errStreamClosed
	}
	if r.awaitingFlush {
		r.pendingText.WriteString(text)
		return nil
	}
	if err := r.writeLocked(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send websocket speak message: %w", err)
	}
	return nil
}

func (r *speechStream) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errStreamClosed
	}
	if r.awaitingFlush {
		r.pendingFlush = true
		return nil
	}
	if err := r.writeLocked(flushMsg); err != nil {
		return fmt.Errorf("failed to send websocket flush message: %w", err)
	}
	r.awaitingFlush = true
	return nil
}

func (r *speechStream) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errStreamClosed
	}
	r.pendingText.Reset()
	r.pendingFlush = false
	r.awaitingFlush = false
	if err := r.writeLocked(clearMsg); err != nil {
		return fmt.Errorf("failed to send websocket clear message: %w", err)
	}
	return nil
}

func (r *speechStream) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	err := r.writeLocked(closeMsg)
	r.closed = true
	if err != nil {
		if aggressiveCloseErr := r.ws.Close(); aggressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, aggressiveCloseErr))
		}
		return nil
	}
	return r.ws.SetReadDeadline(time.Now().Add(closeTimeout))
}

func (r *speechStream) sendPending() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.awaitingFlush = false
	if r.closed {
		return nil
	}

	if r.pendingText.Len() > 0 {
		text := r.pendingText.String()
		r.pendingText.Reset()
		if err := r.writeLocked(speakMessage{Type: "Speak", Text: text}); err != nil {
			return err
		}
	}
	if r.pendingFlush {
		r.pendingFlush = false
		if err := r.writeLocked(flushMsg); err != nil {
			return err
		}
		r.awaitingFlush = true
	}
	return nil
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (r *speechStream) writeLocked(msg any) error {
	if r.ws == nil {
		return errStreamClosed
	}
	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
