package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/speechtotext"
)

type fakeSession struct {
	client orchestration.ClientSink

	mu         sync.Mutex
	audio      [][]byte
	interrupts int
	started    atomic.Bool
	closed     atomic.Bool
	stop       chan struct{}
	stopOnce   sync.Once
}

func newFakeSession(client orchestration.ClientSink) *fakeSession {
	return &fakeSession{client: client, stop: make(chan struct{})}
}

func (f *fakeSession) ID() string { return "fake-session" }

func (f *fakeSession) Run(ctx context.Context) error {
	f.started.Store(true)
	select {
	case <-ctx.Done():
	case <-f.stop:
	}
	return nil
}

func (f *fakeSession) SendAudio(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, frame)
	return nil
}

func (f *fakeSession) Interrupt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
}

func (f *fakeSession) Close() {
	f.closed.Store(true)
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *fakeSession) counts() (audio, interrupts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audio), f.interrupts
}

type sessionRecorder struct {
	mu       sync.Mutex
	sessions []*fakeSession
}

func (r *sessionRecorder) factory(_ context.Context, client orchestration.ClientSink) (Session, error) {
	session := newFakeSession(client)
	r.mu.Lock()
	r.sessions = append(r.sessions, session)
	r.mu.Unlock()
	return session, nil
}

func (r *sessionRecorder) last() *fakeSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHandler_ServesStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>interview</h1>"), 0o644); err != nil {
		t.Fatalf("failed to write index.html: %v", err)
	}

	recorder := &sessionRecorder{}
	server := httptest.NewServer(NewHandler(recorder.factory, WithStaticDir(dir)).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "interview") {
		t.Fatalf("expected the index page, got %d %q", resp.StatusCode, body)
	}
	if recorder.last() != nil {
		t.Fatal("expected no session for a plain HTTP request")
	}
}

func TestHandler_WithoutStaticDirReturnsNotFound(t *testing.T) {
	recorder := &sessionRecorder{}
	server := httptest.NewServer(NewHandler(recorder.factory).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandler_UpgradesOnBothPaths(t *testing.T) {
	for _, path := range []string{"/", "/ws"} {
		t.Run(path, func(t *testing.T) {
			recorder := &sessionRecorder{}
			server := httptest.NewServer(NewHandler(recorder.factory, WithStaticDir(t.TempDir())).Routes())
			defer server.Close()

			dial(t, server, path)
			waitFor(t, "the session to start", func() bool {
				session := recorder.last()
				return session != nil && session.started.Load()
			})
		})
	}
}

func TestHandler_RoutesClientFrames(t *testing.T) {
	recorder := &sessionRecorder{}
	server := httptest.NewServer(NewHandler(recorder.factory).Routes())
	defer server.Close()

	conn := dial(t, server, "/ws")
	waitFor(t, "the session", func() bool { return recorder.last() != nil })
	session := recorder.last()

	frames := []struct {
		messageType int
		payload     string
	}{
		{websocket.BinaryMessage, "\x01\x02\x03\x04"},
		{websocket.TextMessage, `{"type":"hello"}`},
		{websocket.TextMessage, `{"type":"interrupt_signal"}`},
		{websocket.BinaryMessage, "\x05\x06"},
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(frame.messageType, []byte(frame.payload)); err != nil {
			t.Fatalf("failed to write frame: %v", err)
		}
	}

	waitFor(t, "frames to reach the session", func() bool {
		audio, interrupts := session.counts()
		return audio == 2 && interrupts == 1
	})
}

func TestHandler_ForwardsSessionMessagesToClient(t *testing.T) {
	recorder := &sessionRecorder{}
	server := httptest.NewServer(NewHandler(recorder.factory).Routes())
	defer server.Close()

	conn := dial(t, server, "/ws")
	waitFor(t, "the session", func() bool { return recorder.last() != nil })
	session := recorder.last()

	if err := session.client.SendTranscript("hello", true, orchestration.SenderUser); err != nil {
		t.Fatalf("SendTranscript() error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message transcriptMessage
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("failed to read transcript: %v", err)
	}
	if message.Type != messageTypeTranscript || message.Text != "hello" || !message.IsFinal || message.Sender != "user" {
		t.Fatalf("unexpected transcript: %+v", message)
	}
}

func TestHandler_ClosesSessionWhenClientLeaves(t *testing.T) {
	recorder := &sessionRecorder{}
	server := httptest.NewServer(NewHandler(recorder.factory).Routes())
	defer server.Close()

	conn := dial(t, server, "/ws")
	waitFor(t, "the session", func() bool { return recorder.last() != nil })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitFor(t, "the session to close", func() bool { return recorder.last().closed.Load() })
}

func TestHandler_FactoryErrorClosesConnection(t *testing.T) {
	failing := func(context.Context, orchestration.ClientSink) (Session, error) {
		return nil, errors.New("no recognizer")
	}
	server := httptest.NewServer(NewHandler(failing).Routes())
	defer server.Close()

	conn := dial(t, server, "/ws")
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseInternalServerErr) {
		t.Fatalf("expected an internal error close, got %v", err)
	}
}

type idleSpeechToText struct {
	audio atomic.Int32
}

func (s *idleSpeechToText) Transcribe(context.Context, ...speechtotext.TranscriptionOption) error {
	return nil
}

func (s *idleSpeechToText) SendAudio([]byte) error {
	s.audio.Add(1)
	return nil
}

func (s *idleSpeechToText) Close() error { return nil }

type scriptedLLM struct {
	chunks []string
}

func (l scriptedLLM) PromptWithStream(context.Context, *string, ...llms.PromptOption) llms.Stream {
	return scriptedStream(l.chunks)
}

type scriptedStream []string

type textChunk string

func (textChunk) FinishReason() *string { return nil }
func (c textChunk) Content() string     { return string(c) }

func (s scriptedStream) Chunks(context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, chunk := range s {
			if !yield(textChunk(chunk), nil) {
				return
			}
		}
	}
}

func TestHandler_GreetsThroughRealSession(t *testing.T) {
	stt := &idleSpeechToText{}
	factory := func(_ context.Context, client orchestration.ClientSink) (Session, error) {
		return orchestration.NewSession(client,
			orchestration.WithSpeechToTextClient(stt),
			orchestration.WithStreamingLLM(scriptedLLM{chunks: []string{"Welcome. ", "Tell me about yourself."}}),
			orchestration.WithGreeting("Hello, let's start the interview.", 0),
			orchestration.WithStatusText("Interviewing..."),
		), nil
	}
	server := httptest.NewServer(NewHandler(factory).Routes())
	defer server.Close()

	conn := dial(t, server, "/ws")
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var types []string
	var aiText strings.Builder
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("failed to read frame after %v: %v", types, err)
		}
		var message struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Sender string `json:"sender"`
		}
		if err := json.Unmarshal(payload, &message); err != nil {
			t.Fatalf("expected a JSON frame, got %q", payload)
		}
		types = append(types, message.Type)
		if message.Type == messageTypeTranscript && message.Sender == "ai" {
			aiText.WriteString(message.Text)
		}
		if message.Type == messageTypeResponseComplete {
			break
		}
	}

	if types[0] != messageTypeStatus {
		t.Fatalf("expected a status frame first, got %v", types)
	}
	if aiText.String() != "Welcome. Tell me about yourself." {
		t.Fatalf("expected the streamed response, got %q", aiText.String())
	}

	waitFor(t, "recognition to open", func() bool {
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
		return stt.audio.Load() > 0
	})
}

func TestHandler_WriteFailureTearsDownConnection(t *testing.T) {
	recorder := &sessionRecorder{}
	handler := NewHandler(recorder.factory, WithPingInterval(20*time.Millisecond), WithWriteTimeout(time.Nanosecond))
	server := httptest.NewServer(handler.Routes())
	defer server.Close()

	conn := dial(t, server, "/ws")
	waitFor(t, "the session", func() bool { return recorder.last() != nil })

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}); err != nil {
					return
				}
			}
		}
	}()

	waitFor(t, "the session to close", func() bool { return recorder.last().closed.Load() })
}
