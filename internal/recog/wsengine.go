package recog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/limnhq/limn/internal/audio"
)

// stopGrace bounds how long a stopped session waits for the engine to
// flush remaining final results before the connection is forced closed.
const stopGrace = 3 * time.Second

// EngineConfig points one WSEngine at a streaming recognition service.
type EngineConfig struct {
	URL       string
	APIKey    string
	Model     string
	Punctuate bool
}

// WSEngine is the websocket-backed recognition engine adapter. Each Start
// call owns one connection plus one capture stream; events are delivered
// in arrival order on a single reader goroutine per session.
type WSEngine struct {
	cfg    EngineConfig
	logger *slog.Logger
	source AudioSource
	probe  func(context.Context) error

	mu       sync.Mutex
	sessions map[Handle]*wsSession
}

// NewWSEngine constructs an engine over the given capture source.
func NewWSEngine(cfg EngineConfig, source AudioSource, logger *slog.Logger) *WSEngine {
	return &WSEngine{
		cfg:      cfg,
		logger:   logger,
		source:   source,
		probe:    audio.ProbePermission,
		sessions: make(map[Handle]*wsSession),
	}
}

// Supported reports whether a usable engine endpoint and capture source
// are configured. Pure probe, no side effects.
func (e *WSEngine) Supported() bool {
	if e.source == nil {
		return false
	}
	parsed, err := url.Parse(e.cfg.URL)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "ws" || parsed.Scheme == "wss") && parsed.Host != ""
}

// RequestMicPermission momentarily acquires the default input device to
// elicit any access prompt, releasing it before returning.
func (e *WSEngine) RequestMicPermission(ctx context.Context) error {
	return e.probe(ctx)
}

// Start allocates a handle and begins connecting asynchronously. Dial or
// capture failures surface through OnError under the returned handle.
func (e *WSEngine) Start(ctx context.Context, opts Options, cbs Callbacks) Handle {
	handle := Handle(uuid.NewString())
	session := &wsSession{
		handle: handle,
		cfg:    e.cfg,
		opts:   opts,
		cbs:    cbs.normalized(),
		source: e.source,
		logger: e.logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.sessions[handle] = session
	e.mu.Unlock()

	go func() {
		session.run(ctx)
		e.mu.Lock()
		delete(e.sessions, handle)
		e.mu.Unlock()
	}()

	return handle
}

// Stop requests graceful termination. Unknown or already-stopped handles
// are a no-op.
func (e *WSEngine) Stop(handle Handle) {
	e.mu.Lock()
	session := e.sessions[handle]
	e.mu.Unlock()
	if session != nil {
		session.stop()
	}
}

// wsSession is one connection + capture stream lifecycle.
type wsSession struct {
	handle Handle
	cfg    EngineConfig
	opts   Options
	cbs    Callbacks
	source AudioSource
	logger *slog.Logger

	stopOnce     sync.Once
	terminalOnce sync.Once
	stopCh       chan struct{}
	done         chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	stream AudioStream
}

func (s *wsSession) run(ctx context.Context) {
	defer close(s.done)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint(), s.header())
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("dial engine (status %d): %w", resp.StatusCode, err)
		}
		s.terminate(CodeNetwork, err)
		return
	}

	stream, err := s.source.Open(ctx)
	if err != nil {
		_ = conn.Close()
		s.terminate(CodeAudioCapture, err)
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.stream = stream
	s.mu.Unlock()

	if s.stopping() {
		// Stopped while connecting: never report start for this handle.
		s.cleanup()
		s.finish()
		return
	}

	go s.watch(ctx)
	go s.sendLoop(conn, stream)

	s.cbs.OnStart(s.handle)
	s.recvLoop(conn)
}

// watch propagates context cancellation into a graceful stop.
func (s *wsSession) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.stop()
	case <-s.done:
	}
}

// sendLoop pumps PCM chunks to the engine until capture drains, then
// asks the engine to flush remaining finals.
func (s *wsSession) sendLoop(conn *websocket.Conn, stream AudioStream) {
	for chunk := range stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			_ = stream.Stop()
			if !s.stopping() {
				s.terminate(CodeNetwork, err)
			}
			return
		}
	}
	_ = conn.WriteMessage(websocket.TextMessage, encodeFinalize())

	if counter, ok := stream.(interface{ BytesCaptured() int64 }); ok && s.logger != nil {
		s.logger.Debug("capture drained",
			"handle", string(s.handle),
			"bytes_captured", counter.BytesCaptured(),
		)
	}
}

// recvLoop decodes engine frames and dispatches callbacks in arrival order.
func (s *wsSession) recvLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.stopping() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.finish()
			} else {
				s.terminate(CodeNetwork, err)
			}
			return
		}

		frame, err := decodeServerFrame(data)
		if err != nil {
			s.logWarn("unreadable engine frame", "error", err.Error())
			continue
		}

		switch frame.Type {
		case frameTypeResult:
			if results := frame.results(); len(results) > 0 {
				s.cbs.OnResult(s.handle, results)
			}
		case frameTypeError:
			s.terminate(frame.errorCode(), errors.New(frame.Message))
			return
		case frameTypeEnd:
			s.finish()
			return
		default:
			s.logWarn("unknown engine frame type", "type", frame.Type)
		}
	}
}

// stop halts capture and gives the engine a bounded flush window.
func (s *wsSession) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		stream := s.stream
		conn := s.conn
		s.mu.Unlock()

		if stream != nil {
			_ = stream.Stop()
		}
		if conn != nil {
			go func() {
				select {
				case <-s.done:
				case <-time.After(stopGrace):
					_ = conn.Close()
				}
			}()
		}
	})
}

func (s *wsSession) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// terminate reports the single terminal error event for this session.
func (s *wsSession) terminate(code string, err error) {
	s.terminalOnce.Do(func() {
		s.cleanup()
		s.logWarn("recognition session failed", "code", code, "error", fmt.Sprint(err))
		s.cbs.OnError(s.handle, code)
	})
}

// finish reports the single terminal end event for this session.
func (s *wsSession) finish() {
	s.terminalOnce.Do(func() {
		s.cleanup()
		s.cbs.OnEnd(s.handle)
	})
}

// cleanup releases the capture stream and connection exactly once each.
func (s *wsSession) cleanup() {
	s.mu.Lock()
	stream := s.stream
	conn := s.conn
	s.stream = nil
	s.conn = nil
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Stop()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// endpoint renders the engine URL with session configuration parameters.
func (s *wsSession) endpoint() string {
	parsed, err := url.Parse(s.cfg.URL)
	if err != nil {
		return s.cfg.URL
	}

	q := parsed.Query()
	if s.cfg.Model != "" {
		q.Set("model", s.cfg.Model)
	}
	if s.opts.Language != "" {
		q.Set("language", s.opts.Language)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", strconv.FormatBool(s.opts.InterimResults))
	q.Set("continuous", strconv.FormatBool(s.opts.Continuous))
	if s.opts.MaxAlternatives > 0 {
		q.Set("max_alternatives", strconv.Itoa(s.opts.MaxAlternatives))
	}
	if s.cfg.Punctuate {
		q.Set("punctuate", "true")
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func (s *wsSession) header() http.Header {
	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Token "+s.cfg.APIKey)
	}
	return header
}

func (s *wsSession) logWarn(message string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append([]any{"handle", string(s.handle)}, args...)
	s.logger.Warn(message, args...)
}
