package server

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-interview/core"
)

const (
	messageTypeInterrupt        = "interrupt_signal"
	messageTypeTranscript       = "transcript"
	messageTypeAudio            = "audio"
	messageTypeStatus           = "status"
	messageTypeResponseComplete = "response_complete"
)

type FrameKind int

const (
	// FrameAudio carries PCM to hand to the recognizer.
	FrameAudio FrameKind = iota
	// FrameInterrupt asks the session to stop the current response.
	FrameInterrupt
	// FrameIgnored is a well formed control message the server does not act
	// on.
	FrameIgnored
)

func (k FrameKind) String() string {
	switch k {
	case FrameAudio:
		return "audio"
	case FrameInterrupt:
		return "interrupt"
	default:
		return "ignored"
	}
}

type ClientFrame struct {
	Kind  FrameKind
	Audio []byte
}

// DecodeClientFrame classifies a frame read from the client. Binary frames
// are always audio. Text frames are control messages when they hold JSON and
// audio otherwise.
func DecodeClientFrame(messageType int, payload []byte) ClientFrame {
	if messageType != websocket.TextMessage {
		return ClientFrame{Kind: FrameAudio, Audio: payload}
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if !json.Valid(payload) {
		return ClientFrame{Kind: FrameAudio, Audio: payload}
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		// Valid JSON that is not an object.
		return ClientFrame{Kind: FrameIgnored}
	}

	if strings.TrimSpace(envelope.Type) == messageTypeInterrupt {
		return ClientFrame{Kind: FrameInterrupt}
	}
	return ClientFrame{Kind: FrameIgnored}
}

type transcriptMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
	Sender  string `json:"sender"`
}

type audioMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type statusMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseCompleteMessage struct {
	Type string `json:"type"`
}

func newTranscriptMessage(text string, isFinal bool, sender orchestration.Sender) transcriptMessage {
	return transcriptMessage{Type: messageTypeTranscript, Text: text, IsFinal: isFinal, Sender: string(sender)}
}

func newAudioMessage(packet []byte) audioMessage {
	return audioMessage{Type: messageTypeAudio, Data: base64.StdEncoding.EncodeToString(packet)}
}

func newStatusMessage(text string) statusMessage {
	return statusMessage{Type: messageTypeStatus, Text: text}
}

func newResponseCompleteMessage() responseCompleteMessage {
	return responseCompleteMessage{Type: messageTypeResponseComplete}
}
