package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	updated, ok := next.(model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return updated
}

func TestModelCollectsTranscripts(t *testing.T) {
	m := newModel(nil)
	m = update(t, m, transcriptMsg{text: "I have five", sender: senderUser})
	if m.interim != "I have five" {
		t.Fatalf("expected interim text, got %q", m.interim)
	}

	m = update(t, m, transcriptMsg{text: "I have five years of Go.", isFinal: true, sender: senderUser})
	m = update(t, m, statusMsg{text: "Interviewing..."})
	m = update(t, m, transcriptMsg{text: "Great. ", sender: senderAI})
	m = update(t, m, transcriptMsg{text: "Tell me more.", sender: senderAI})
	m = update(t, m, responseCompleteMsg{})

	if m.interim != "" {
		t.Fatalf("expected interim text cleared by the final, got %q", m.interim)
	}
	if len(m.lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(m.lines), m.lines)
	}
	if m.lines[1].sender != senderAI || m.lines[1].text != "Great. Tell me more." {
		t.Fatalf("expected streamed interviewer text in one line, got %+v", m.lines[1])
	}
	if m.responding {
		t.Fatal("expected the response to be over")
	}
}

func TestModelStartsNewLinePerResponse(t *testing.T) {
	m := newModel(nil)
	m = update(t, m, statusMsg{text: "Interviewing..."})
	m = update(t, m, transcriptMsg{text: "First.", sender: senderAI})
	m = update(t, m, statusMsg{text: "Interviewing..."})
	m = update(t, m, transcriptMsg{text: "Second.", sender: senderAI})

	if len(m.lines) != 2 {
		t.Fatalf("expected a line per response, got %+v", m.lines)
	}
}

func TestModelSpaceInterrupts(t *testing.T) {
	interrupts := 0
	m := newModel(func() { interrupts++ })
	m = update(t, m, statusMsg{text: "Interviewing..."})
	m = update(t, m, transcriptMsg{text: "Let me explain", sender: senderAI})

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	if interrupts != 1 {
		t.Fatalf("expected one interrupt, got %d", interrupts)
	}
	if m.responding {
		t.Fatal("expected the response to stop")
	}
	if !m.lines[0].interrupted {
		t.Fatal("expected the interviewer line to be marked interrupted")
	}

	m = update(t, m, transcriptMsg{text: "Late text.", sender: senderAI})
	if len(m.lines) != 2 {
		t.Fatalf("expected text after an interrupt on a new line, got %+v", m.lines)
	}
}

func TestModelQuitsWhenConnectionCloses(t *testing.T) {
	m := newModel(nil)
	next, cmd := m.Update(connectionClosedMsg{err: errors.New("connection lost")})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}
	if !strings.Contains(next.(model).View(), "connection lost") {
		t.Fatal("expected the error in the view")
	}
}

func TestDecodeServerMessage(t *testing.T) {
	msg, packet, err := decodeServerMessage([]byte(`{"type":"audio","data":"AAH/"}`))
	if err != nil || msg != nil {
		t.Fatalf("expected an audio packet, got %v %v", msg, err)
	}
	if !bytes.Equal(packet, []byte{0x00, 0x01, 0xff}) {
		t.Fatalf("expected decoded audio, got %v", packet)
	}

	msg, _, err = decodeServerMessage([]byte(`{"type":"transcript","text":"hi","isFinal":true,"sender":"user"}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got, ok := msg.(transcriptMsg); !ok || got.text != "hi" || !got.isFinal || got.sender != senderUser {
		t.Fatalf("unexpected transcript message %+v", msg)
	}

	if msg, packet, err := decodeServerMessage([]byte(`{"type":"unknown"}`)); msg != nil || packet != nil || err != nil {
		t.Fatalf("expected unknown types to be ignored, got %v %v %v", msg, packet, err)
	}
	if _, _, err := decodeServerMessage([]byte("not json")); err == nil {
		t.Fatal("expected error for a non-JSON frame")
	}
}
