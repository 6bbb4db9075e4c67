package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-interview/core"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultReadLimit = 1 << 20

// Session is the part of a conversation session the connection drives.
type Session interface {
	ID() string
	Run(ctx context.Context) error
	SendAudio(frame []byte) error
	Interrupt()
	Close()
}

var _ Session = (*orchestration.Session)(nil)

// SessionFactory builds the session for a freshly accepted connection. The
// client is where the session sends everything meant for the browser.
type SessionFactory func(ctx context.Context, client orchestration.ClientSink) (Session, error)

type Handler struct {
	newSession   SessionFactory
	static       http.Handler
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	readLimit    int64
}

type HandlerOption func(*Handler)

// WithStaticDir serves the files under dir for plain HTTP requests to "/".
func WithStaticDir(dir string) HandlerOption {
	return func(h *Handler) {
		if dir == "" {
			h.static = nil
			return
		}
		h.static = http.FileServer(http.Dir(dir))
	}
}

func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithPingInterval(interval time.Duration) HandlerOption {
	return func(h *Handler) { h.pingInterval = interval }
}

func WithWriteTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) { h.writeTimeout = timeout }
}

func WithReadLimit(limit int64) HandlerOption {
	return func(h *Handler) { h.readLimit = limit }
}

func NewHandler(newSession SessionFactory, opts ...HandlerOption) *Handler {
	h := &Handler{
		newSession: newSession,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: defaultPingInterval,
		writeTimeout: defaultWriteTimeout,
		readLimit:    defaultReadLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes upgrades every request to /ws and upgrade requests to /. Other
// requests to / get the static files.
func (h *Handler) Routes() http.Handler {
	connections := otelhttp.NewHandler(http.HandlerFunc(h.serveConnection), "handle connection")

	mux := http.NewServeMux()
	mux.Handle("/ws", connections)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			connections.ServeHTTP(w, r)
			return
		}
		if h.static == nil {
			http.NotFound(w, r)
			return
		}
		h.static.ServeHTTP(w, r)
	}))
	return mux
}

func (h *Handler) serveConnection(w http.ResponseWriter, r *http.Request) {
	span := trace.SpanFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	writer := newClientWriter(conn, h.pingInterval, h.writeTimeout)
	session, err := h.newSession(ctx, writer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create session")
		h.logger.Error("failed to create session", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable"),
			time.Now().Add(h.writeTimeout))
		return
	}
	span.SetAttributes(attribute.String("session.id", session.ID()))
	log := h.logger.With("session_id", session.ID())
	log.Info("client connected", "remote_addr", r.RemoteAddr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := writer.Run(ctx); err != nil {
			log.Debug("client writer stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		if err := session.Run(ctx); err != nil {
			span.RecordError(err)
			log.Warn("session stopped with error", "error", err)
		}
	}()

	h.readFrames(ctx, conn, session, log)

	cancel()
	session.Close()
	// The writer closes the socket when it stops, either on ctx or on a failed
	// write, which also unblocks a reader that is still waiting.
	wg.Wait()
	log.Info("client disconnected")
}

func (h *Handler) readFrames(ctx context.Context, conn *websocket.Conn, session Session, log *slog.Logger) {
	pongWait := 2 * h.pingInterval
	if pongWait <= 0 {
		pongWait = 2 * defaultPingInterval
	}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !isExpectedClose(err) {
				log.Debug("client read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		frame := DecodeClientFrame(messageType, payload)
		switch frame.Kind {
		case FrameAudio:
			if err := session.SendAudio(frame.Audio); err != nil {
				log.Warn("failed to forward audio", "stage", "stt", "error", err)
			}
		case FrameInterrupt:
			log.Info("interrupt signal received")
			session.Interrupt()
		case FrameIgnored:
			log.Debug("ignoring control message", "payload_bytes", len(payload))
		}
	}
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent)
}
