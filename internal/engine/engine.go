// Package engine consumes a live streaming speech-recognition service.
// The session controller is the sole subscriber of engine events.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/podium/internal/transcript"
)

// Handler receives engine events from the stream's receive loop.
type Handler interface {
	OnResult(transcript.Segment)
	OnError(error)
	OnEnd()
}

// StreamConfig controls stream initialization and recognition behavior.
type StreamConfig struct {
	Endpoint         string
	LanguageCode     string
	Model            string
	InterimResults   bool
	DialTimeout      time.Duration
	DebugMessageSink io.Writer
}

// Capability is the startup probe outcome. Unavailable capture is
// non-fatal: the file upload path stays usable.
type Capability struct {
	Available bool
	Reason    string
}

// Probe evaluates once, at construction, whether live capture can work.
// It validates configuration only; liveness is the doctor's concern.
func Probe(cfg StreamConfig) Capability {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return Capability{Reason: "no speech engine endpoint configured"}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return Capability{Reason: fmt.Sprintf("invalid speech engine endpoint %q", endpoint)}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return Capability{Reason: fmt.Sprintf("speech engine endpoint %q must use ws:// or wss://", endpoint)}
	}
	if u.Host == "" {
		return Capability{Reason: fmt.Sprintf("speech engine endpoint %q has no host", endpoint)}
	}

	return Capability{Available: true}
}

// openRequest is the first message on a new stream.
type openRequest struct {
	Type           string `json:"type"`
	Encoding       string `json:"encoding"`
	SampleRate     int    `json:"sample_rate"`
	Channels       int    `json:"channels"`
	LanguageCode   string `json:"language_code"`
	Model          string `json:"model,omitempty"`
	InterimResults bool   `json:"interim_results"`
}

// serverMessage covers every frame the engine sends back.
type serverMessage struct {
	Type        string `json:"type"`
	ResultIndex *int   `json:"result_index"`
	IsFinal     bool   `json:"is_final"`
	Transcript  string `json:"transcript"`
	Message     string `json:"message"`
}

// Stream wraps one active recognition websocket lifecycle. Events are
// delivered to the handler from a single receive goroutine in arrival
// order; segment indexes follow the server when present and a local
// arrival counter otherwise.
type Stream struct {
	conn    *websocket.Conn
	handler Handler

	recvDone chan struct{}

	writeMu    sync.Mutex
	closedSend bool

	mu        sync.Mutex
	nextIndex int
	debugSink io.Writer
}

// DialStream connects, sends the stream configuration, and starts the
// receive loop. Events flow to the handler until Stop or a stream error.
func DialStream(ctx context.Context, cfg StreamConfig, handler Handler) (*Stream, error) {
	if handler == nil {
		return nil, errors.New("engine handler is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("engine endpoint is empty")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	language := strings.TrimSpace(cfg.LanguageCode)
	if language == "" {
		language = "en-US"
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial speech engine %q: %w", endpoint, err)
	}

	open := openRequest{
		Type:           "start",
		Encoding:       "linear16",
		SampleRate:     16000,
		Channels:       1,
		LanguageCode:   language,
		Model:          strings.TrimSpace(cfg.Model),
		InterimResults: cfg.InterimResults,
	}
	if err := conn.WriteJSON(open); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send stream configuration: %w", err)
	}

	s := &Stream{
		conn:      conn,
		handler:   handler,
		recvDone:  make(chan struct{}),
		debugSink: cfg.DebugMessageSink,
	}
	go s.recvLoop()
	return s, nil
}

// SendAudio forwards one chunk of PCM audio over the active stream.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closedSend {
		return errors.New("stream already closed for sending")
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// Stop closes the send side and waits for the receive loop to drain any
// trailing results. Idempotent; the handler's OnEnd fires exactly once.
func (s *Stream) Stop(ctx context.Context) error {
	s.writeMu.Lock()
	if !s.closedSend {
		s.closedSend = true
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "capture stopped"),
			deadline,
		)
	}
	s.writeMu.Unlock()

	select {
	case <-s.recvDone:
		return nil
	case <-ctx.Done():
		_ = s.conn.Close()
		<-s.recvDone
		return ctx.Err()
	}
}

// Close aborts the stream without draining.
func (s *Stream) Close() error {
	s.writeMu.Lock()
	s.closedSend = true
	s.writeMu.Unlock()
	return s.conn.Close()
}

// recvLoop receives recognition frames until stream close or error and
// always finishes with OnEnd.
func (s *Stream) recvLoop() {
	defer close(s.recvDone)
	defer s.handler.OnEnd()
	defer func() { _ = s.conn.Close() }()

	for {
		kind, payload, err := s.conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) {
				return
			}
			s.handler.OnError(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.handleFrame(payload)
	}
}

// handleFrame parses one server frame and dispatches it.
func (s *Stream) handleFrame(payload []byte) {
	if sink := s.debugSink; sink != nil {
		_, _ = sink.Write(append(append([]byte(nil), payload...), '\n'))
	}

	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.handler.OnError(fmt.Errorf("malformed engine frame: %w", err))
		return
	}

	switch msg.Type {
	case "result":
		seg, ok := s.segmentFor(msg)
		if ok {
			s.handler.OnResult(seg)
		}
	case "error":
		message := strings.TrimSpace(msg.Message)
		if message == "" {
			message = "speech engine reported an error"
		}
		s.handler.OnError(errors.New(message))
	}
}

// segmentFor assigns the arrival index. The server index wins when sent;
// otherwise interim results share the current slot and finals advance it,
// the way browser recognition results index their result list.
func (s *Stream) segmentFor(msg serverMessage) (transcript.Segment, bool) {
	text := strings.TrimSpace(msg.Transcript)
	if text == "" && !msg.IsFinal {
		return transcript.Segment{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.nextIndex
	if msg.ResultIndex != nil && *msg.ResultIndex >= 0 {
		index = *msg.ResultIndex
	}
	if msg.IsFinal && index >= s.nextIndex {
		s.nextIndex = index + 1
	}

	return transcript.Segment{Text: text, Final: msg.IsFinal, Index: index}, true
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
