package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-interview/core"
)

const (
	defaultPingInterval  = 20 * time.Second
	defaultWriteTimeout  = 5 * time.Second
	outboundQueueSize    = 256
	shutdownFlushTimeout = 100 * time.Millisecond
	shutdownFlushFrames  = 8
)

var errWriterClosed = errors.New("client writer closed")

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// clientWriter owns every write to the socket. The session hands it
// messages through the ClientSink methods and Run serializes them.
type clientWriter struct {
	ws           wsWriter
	pingInterval time.Duration
	writeTimeout time.Duration

	frames   chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

var _ orchestration.ClientSink = (*clientWriter)(nil)

func newClientWriter(ws wsWriter, pingInterval, writeTimeout time.Duration) *clientWriter {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &clientWriter{
		ws:           ws,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		frames:       make(chan []byte, outboundQueueSize),
		done:         make(chan struct{}),
	}
}

func (w *clientWriter) Run(ctx context.Context) error {
	defer w.doneOnce.Do(func() { close(w.done) })

	pingTicker := time.NewTicker(w.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flushOnShutdown()
			_ = w.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(w.writeTimeout))
			_ = w.ws.Close()
			return nil
		case <-pingTicker.C:
			if err := w.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(w.writeTimeout)); err != nil {
				_ = w.ws.Close()
				return err
			}
		case frame := <-w.frames:
			if err := w.writeFrame(frame); err != nil {
				_ = w.ws.Close()
				return err
			}
		}
	}
}

func (w *clientWriter) flushOnShutdown() {
	deadline := time.Now().Add(min(shutdownFlushTimeout, w.writeTimeout))
	for i := 0; i < shutdownFlushFrames && time.Now().Before(deadline); i++ {
		select {
		case frame := <-w.frames:
			_ = w.writeFrame(frame)
		default:
			return
		}
	}
}

func (w *clientWriter) writeFrame(frame []byte) error {
	if err := w.ws.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.ws.WriteMessage(websocket.TextMessage, frame)
}

func (w *clientWriter) enqueue(message any) error {
	frame, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode client message: %w", err)
	}

	select {
	case <-w.done:
		return errWriterClosed
	default:
	}
	select {
	case w.frames <- frame:
		return nil
	case <-w.done:
		return errWriterClosed
	}
}

func (w *clientWriter) SendTranscript(text string, isFinal bool, sender orchestration.Sender) error {
	return w.enqueue(newTranscriptMessage(text, isFinal, sender))
}

func (w *clientWriter) SendAudio(packet []byte) error {
	if len(packet) == 0 {
		return nil
	}
	return w.enqueue(newAudioMessage(packet))
}

func (w *clientWriter) SendStatus(text string) error {
	return w.enqueue(newStatusMessage(text))
}

func (w *clientWriter) SendResponseComplete() error {
	return w.enqueue(newResponseCompleteMessage())
}
