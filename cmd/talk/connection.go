package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	outgoingQueueSize = 64
	writeTimeout      = 5 * time.Second
)

var interruptPayload = []byte(`{"type":"interrupt_signal"}`)

type outgoingFrame struct {
	messageType int
	payload     []byte
}

// connection is the client end of the interview socket. WriteLoop is the
// only writer.
type connection struct {
	conn      *websocket.Conn
	outgoing  chan outgoingFrame
	done      chan struct{}
	closeOnce sync.Once
}

func dial(ctx context.Context, url string) (*connection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &connection{
		conn:     conn,
		outgoing: make(chan outgoingFrame, outgoingQueueSize),
		done:     make(chan struct{}),
	}, nil
}

// SendAudio queues a frame of captured audio. Frames are dropped while the
// queue is full.
func (c *connection) SendAudio(frame []byte) {
	select {
	case c.outgoing <- outgoingFrame{messageType: websocket.BinaryMessage, payload: frame}:
	default:
	}
}

func (c *connection) SendInterrupt() {
	select {
	case c.outgoing <- outgoingFrame{messageType: websocket.TextMessage, payload: interruptPayload}:
	case <-c.done:
	}
}

func (c *connection) WriteLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return nil
		case <-c.done:
			return nil
		case frame := <-c.outgoing:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return err
			}
			if err := c.conn.WriteMessage(frame.messageType, frame.payload); err != nil {
				return fmt.Errorf("failed to send to server: %w", err)
			}
		}
	}
}

// ReadLoop hands audio packets to onAudio and everything else to onMessage
// until the connection closes.
func (c *connection) ReadLoop(onMessage func(tea.Msg), onAudio func([]byte)) error {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		msg, packet, err := decodeServerMessage(payload)
		if err != nil {
			continue
		}
		if packet != nil {
			onAudio(packet)
			continue
		}
		if msg != nil {
			onMessage(msg)
		}
	}
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

type serverMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
	Sender  string `json:"sender"`
	Data    string `json:"data"`
}

// decodeServerMessage returns either the UI message or the audio packet a
// frame carries. Unknown message types yield neither.
func decodeServerMessage(payload []byte) (tea.Msg, []byte, error) {
	var message serverMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, nil, fmt.Errorf("invalid server message: %w", err)
	}

	switch message.Type {
	case "transcript":
		return transcriptMsg{text: message.Text, isFinal: message.IsFinal, sender: message.Sender}, nil, nil
	case "audio":
		packet, err := base64.StdEncoding.DecodeString(message.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid audio payload: %w", err)
		}
		if len(packet) == 0 {
			return nil, nil, nil
		}
		return nil, packet, nil
	case "status":
		return statusMsg{text: message.Text}, nil, nil
	case "response_complete":
		return responseCompleteMsg{}, nil, nil
	default:
		return nil, nil, nil
	}
}
