package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/speechtotext"
)

const closeStreamTimeout = 2 * time.Second

func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.DefaultTranscriptionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	callbacks, wsConfig := newCallbackConfig(options)
	conn, err := s.connectWebsocket(ctx, connectionOptions{
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),
		model:      options.Model,
		language:   options.Language,

		detectSpeechStart:            wsConfig.shouldDetectSpeechStart,
		enhanceSpeechEndingDetection: wsConfig.shouldEnhanceSpeechEndingDetection,
		interimResults:               wsConfig.shouldRequestInterimResults,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.connMu.Lock()
	s.conn = conn
	s.lastMsgTs = time.Now()
	s.closing = false
	s.cancel = cancel
	s.connMu.Unlock()

	if options.KeepAliveInterval > 0 {
		go s.keepAlive(ctx, options.KeepAliveInterval)
	}
	go s.readAndProcessMessages(ctx, cancel, conn, callbacks)

	return nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string
	model      string
	language   string

	detectSpeechStart            bool
	enhanceSpeechEndingDetection bool
	interimResults               bool
}

func (s *TranscriptionClient) connectWebsocket(ctx context.Context, options connectionOptions) (*websocket.Conn, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, err := url.Parse(s.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", options.model)
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")
	if options.interimResults || options.enhanceSpeechEndingDetection {
		queryParams.Set("interim_results", "true")
	}
	if options.enhanceSpeechEndingDetection {
		queryParams.Set("utterance_end_ms", "1000")
	}
	if options.detectSpeechStart || options.enhanceSpeechEndingDetection {
		queryParams.Set("vad_events", "true")
	}

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := s.dialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

type controlMessage struct {
	Type string `json:"type"`
}

func (s *TranscriptionClient) sendKeepAlive() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return ErrNotConnected
	}
	if err := s.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
		return fmt.Errorf("failed to write keep-alive to deepgram: %w", err)
	}
	s.lastMsgTs = time.Now()
	return nil
}

// SendAudio forwards raw audio to the recognizer. It fails with
// [ErrNotConnected] when the stream is not open.
func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return ErrNotConnected
	}
	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// Close asks Deepgram to finish the stream and waits at most a couple of
// seconds for it to do so. Repeated calls are ignored.
func (s *TranscriptionClient) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return nil
	}
	s.closing = true
	if s.cancel != nil {
		s.cancel()
	}

	if err := s.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(closeStreamTimeout)); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to set close deadline: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) keepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.connMu.Lock()
			idle := time.Since(s.lastMsgTs) >= interval
			s.connMu.Unlock()
			if !idle {
				continue
			}
			if err := s.sendKeepAlive(); err != nil {
				logger.Debug("failed to send keep-alive", "error", err)
			}
		}
	}
}

func (s *TranscriptionClient) readAndProcessMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, callbacks callbackConfig) {
	defer callbacks.closedCallback()
	defer cancel()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			s.connMu.Lock()
			closing := s.closing
			if s.conn == conn {
				s.conn = nil
			}
			s.connMu.Unlock()
			conn.Close()

			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("failed to read deepgram websocket message", "error", err)
				callbacks.errorCallback(fmt.Errorf("deepgram stream ended: %w", err))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(ctx, msg, callbacks)
		}
	}
}

func (s *TranscriptionClient) processMessage(_ context.Context, msg []byte, callbacks callbackConfig) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}

		transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if len(transcript) == 0 {
			return
		}
		if msgResp.IsFinal {
			callbacks.partialTranscriptionCallback(transcript)
		} else {
			callbacks.partialInterimTranscriptionCallback(transcript)
		}

	case api.TypeUtteranceEndResponse:
		callbacks.endSpeechCallback()

	case api.TypeSpeechStartedResponse:
		callbacks.startSpeechCallback()
	}
}
