package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-interview/core"
)

type recordedWrite struct {
	messageType int
	data        string
}

type fakeWSWriter struct {
	mu       sync.Mutex
	writes   []recordedWrite
	closed   bool
	writeErr error
}

func (f *fakeWSWriter) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeWSWriter) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, recordedWrite{messageType: messageType, data: string(data)})
	return nil
}

func (f *fakeWSWriter) WriteControl(messageType int, data []byte, deadline time.Time) error {
	_ = deadline
	return f.WriteMessage(messageType, data)
}

func (f *fakeWSWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWSWriter) snapshot() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeWSWriter) textWrites() []string {
	var out []string
	for _, write := range f.snapshot() {
		if write.messageType == websocket.TextMessage {
			out = append(out, write.data)
		}
	}
	return out
}

func (f *fakeWSWriter) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClientWriter_WritesMessagesInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := &fakeWSWriter{}
	w := newClientWriter(ws, time.Hour, time.Second)
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	if err := w.SendStatus("Interviewing..."); err != nil {
		t.Fatalf("SendStatus() error: %v", err)
	}
	if err := w.SendTranscript("Hi there", false, orchestration.SenderAI); err != nil {
		t.Fatalf("SendTranscript() error: %v", err)
	}
	if err := w.SendAudio([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("SendAudio() error: %v", err)
	}
	if err := w.SendResponseComplete(); err != nil {
		t.Fatalf("SendResponseComplete() error: %v", err)
	}

	waitFor(t, "four frames", func() bool { return len(ws.textWrites()) == 4 })

	want := []string{`"type":"status"`, `"type":"transcript"`, `"type":"audio"`, `"type":"response_complete"`}
	for i, write := range ws.textWrites() {
		if !strings.Contains(write, want[i]) {
			t.Fatalf("frame %d: expected %s, got %s", i, want[i], write)
		}
	}

	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !ws.isClosed() {
		t.Fatal("expected the socket to be closed once the context is done")
	}
	writes := ws.snapshot()
	if last := writes[len(writes)-1]; last.messageType != websocket.CloseMessage {
		t.Fatalf("expected a close message last, got type %d", last.messageType)
	}
}

func TestClientWriter_DropsEmptyAudio(t *testing.T) {
	ws := &fakeWSWriter{}
	w := newClientWriter(ws, time.Hour, time.Second)

	if err := w.SendAudio(nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := w.SendAudio([]byte{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(w.frames) != 0 {
		t.Fatalf("expected no queued frames, got %d", len(w.frames))
	}
}

func TestClientWriter_SendsPings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := &fakeWSWriter{}
	w := newClientWriter(ws, 5*time.Millisecond, time.Second)
	go func() { _ = w.Run(ctx) }()

	waitFor(t, "a ping", func() bool {
		for _, write := range ws.snapshot() {
			if write.messageType == websocket.PingMessage {
				return true
			}
		}
		return false
	})
}

func TestClientWriter_FlushesQueuedFramesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ws := &fakeWSWriter{}
	w := newClientWriter(ws, time.Hour, time.Second)
	if err := w.SendResponseComplete(); err != nil {
		t.Fatalf("SendResponseComplete() error: %v", err)
	}

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	texts := ws.textWrites()
	if len(texts) != 1 || !strings.Contains(texts[0], `"response_complete"`) {
		t.Fatalf("expected the queued frame to be flushed, got %v", texts)
	}
}

func TestClientWriter_RejectsSendsAfterStop(t *testing.T) {
	ws := &fakeWSWriter{writeErr: errors.New("broken pipe")}
	w := newClientWriter(ws, time.Hour, time.Second)
	if err := w.SendStatus("first"); err != nil {
		t.Fatalf("SendStatus() error: %v", err)
	}

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected Run to stop on a write error")
	}
	if err := w.SendStatus("second"); !errors.Is(err, errWriterClosed) {
		t.Fatalf("expected errWriterClosed, got %v", err)
	}
}

func TestClientWriter_ClosesSocketWhenWriteFails(t *testing.T) {
	ws := &fakeWSWriter{writeErr: errors.New("i/o timeout")}
	w := newClientWriter(ws, time.Millisecond, time.Second)

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected Run to stop on a failed ping")
	}
	if !ws.isClosed() {
		t.Fatal("expected the socket to be closed after a failed write")
	}
}
