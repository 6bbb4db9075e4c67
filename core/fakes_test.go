package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

const testTimeout = 2 * time.Second

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type sentTranscript struct {
	text    string
	isFinal bool
	sender  Sender
}

type recordingClient struct {
	mu          sync.Mutex
	transcripts []sentTranscript
	audio       [][]byte
	statuses    []string
	completed   int
}

func (c *recordingClient) SendTranscript(text string, isFinal bool, sender Sender) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcripts = append(c.transcripts, sentTranscript{text: text, isFinal: isFinal, sender: sender})
	return nil
}

func (c *recordingClient) SendAudio(packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = append(c.audio, packet)
	return nil
}

func (c *recordingClient) SendStatus(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, text)
	return nil
}

func (c *recordingClient) SendResponseComplete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed++
	return nil
}

func (c *recordingClient) transcriptsFrom(sender Sender) []sentTranscript {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentTranscript
	for _, transcript := range c.transcripts {
		if transcript.sender == sender {
			out = append(out, transcript)
		}
	}
	return out
}

func (c *recordingClient) hasTranscript(text string, sender Sender) bool {
	for _, transcript := range c.transcriptsFrom(sender) {
		if transcript.text == text {
			return true
		}
	}
	return false
}

func (c *recordingClient) audioPackets() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.audio...)
}

func (c *recordingClient) statusCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.statuses)
}

func (c *recordingClient) completedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

type fakeSpeechToText struct {
	mu      sync.Mutex
	options *speechtotext.TranscriptionOptions
	audio   [][]byte
	closed  atomic.Int32
}

func (f *fakeSpeechToText) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.DefaultTranscriptionOptions()
	for _, opt := range opts {
		opt(&options)
	}
	f.mu.Lock()
	f.options = &options
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeechToText) SendAudio(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, audio)
	return nil
}

func (f *fakeSpeechToText) Close() error {
	f.closed.Add(1)
	return nil
}

func (f *fakeSpeechToText) opened() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options != nil
}

func (f *fakeSpeechToText) final(text string) {
	f.mu.Lock()
	callback := f.options.PartialTranscriptionCallback
	f.mu.Unlock()
	callback(text)
}

func (f *fakeSpeechToText) interim(text string) {
	f.mu.Lock()
	callback := f.options.PartialInterimTranscriptionCallback
	f.mu.Unlock()
	callback(text)
}

func (f *fakeSpeechToText) receivedAudio() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audio)
}

type fakeTextToSpeech struct {
	mu      sync.Mutex
	openErr error
	opens   int
	streams []*fakeSpeechStream
}

func (f *fakeTextToSpeech) setOpenErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

func (f *fakeTextToSpeech) openAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeTextToSpeech) OpenStream(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechStream, error) {
	f.mu.Lock()
	f.opens++
	err := f.openErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	options := texttospeech.DefaultTextToSpeechOptions()
	for _, opt := range opts {
		opt(&options)
	}
	stream := &fakeSpeechStream{options: options}
	f.mu.Lock()
	f.streams = append(f.streams, stream)
	f.mu.Unlock()
	return stream, nil
}

func (f *fakeTextToSpeech) stream(i int) *fakeSpeechStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.streams) {
		return nil
	}
	return f.streams[i]
}

type fakeSpeechStream struct {
	mu      sync.Mutex
	options texttospeech.TextToSpeechOptions
	texts   []string
	flushes int
	clears  int
	closed  bool
}

func (s *fakeSpeechStream) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSpeechStream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *fakeSpeechStream) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	return nil
}

func (s *fakeSpeechStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSpeechStream) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func (s *fakeSpeechStream) counts() (flushes, clears int, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes, s.clears, s.closed
}

func (s *fakeSpeechStream) emitAudio(audio []byte) { s.options.SpeechAudioCallback(audio) }
func (s *fakeSpeechStream) emitFlushed()           { s.options.FlushedCallback() }
func (s *fakeSpeechStream) emitCleared()           { s.options.ClearedCallback() }

// fakeLLM hands every stream it is asked for to the test, which feeds it
// chunk by chunk.
type fakeLLM struct {
	streams chan *fakeStream
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{streams: make(chan *fakeStream, 16)}
}

func (f *fakeLLM) PromptWithStream(_ context.Context, _ *string, opts ...llms.PromptOption) llms.Stream {
	stream := &fakeStream{
		options: llms.ApplyPromptOptions(llms.PromptOptions{}, opts...),
		chunks:  make(chan string),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	f.streams <- stream
	return stream
}

func (f *fakeLLM) next(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case stream := <-f.streams:
		return stream
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for a generation to start")
		return nil
	}
}

func (f *fakeLLM) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case stream := <-f.streams:
		t.Fatalf("expected no generation, got one for %v", stream.options.Turns)
	case <-time.After(wait):
	}
}

type fakeStream struct {
	options llms.PromptOptions
	chunks  chan string
	errs    chan error
	done    chan struct{}
}

type textChunk string

func (textChunk) FinishReason() *string { return nil }
func (c textChunk) Content() string     { return string(c) }

func (s *fakeStream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		defer close(s.done)
		for {
			select {
			case text, ok := <-s.chunks:
				if !ok {
					return
				}
				if !yield(textChunk(text), nil) {
					return
				}
			case err := <-s.errs:
				yield(nil, err)
				return
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}
	}
}

func (s *fakeStream) send(t *testing.T, text string) {
	t.Helper()
	select {
	case s.chunks <- text:
	case <-time.After(testTimeout):
		t.Fatalf("timed out handing %q to the generation", text)
	}
}

func (s *fakeStream) finish() { close(s.chunks) }

func (s *fakeStream) fail(err error) { s.errs <- err }

func (s *fakeStream) waitConsumerGone(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for the generation to stop consuming")
	}
}

func (s *fakeStream) lastTurn() llms.Turn {
	if len(s.options.Turns) == 0 {
		return llms.Turn{}
	}
	return s.options.Turns[len(s.options.Turns)-1]
}

var errFake = errors.New("fake failure")
