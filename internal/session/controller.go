// Package session owns the voice-capture session: lifecycle state,
// transcript accumulation, error classification, and the stale-handle
// guard over recognition engine events.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/limnhq/limn/internal/fsm"
	"github.com/limnhq/limn/internal/recog"
	"github.com/limnhq/limn/internal/transcript"
)

const commitTimeout = 10 * time.Second

// Snapshot is the read-only session view consumed by the UI.
type Snapshot struct {
	Status     fsm.State     `json:"status"`
	Transcript string        `json:"transcript"`
	Confidence float64       `json:"confidence"`
	Error      *SessionError `json:"error,omitempty"`
}

// Controller coordinates one logical voice session over the recognition
// engine adapter. All engine events pass through handle-identity checks
// so deliveries for a retired session are discarded.
type Controller struct {
	logger        *slog.Logger
	engine        recog.Engine
	commit        Committer
	opts          recog.Options
	trailingSpace bool

	mu         sync.Mutex
	state      fsm.State
	tape       transcript.Tape
	confidence float64
	lastErr    *SessionError

	// pendingToken guards the suspending stretch of Start before a
	// handle exists; pendingHandle covers allocation to OnStart;
	// activeHandle covers OnStart onward.
	pendingToken  string
	pendingHandle recog.Handle
	activeHandle  recog.Handle

	subs    map[int]chan Snapshot
	nextSub int
}

// Config carries the controller's session-level settings.
type Config struct {
	Language      string
	TrailingSpace bool
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, engine recog.Engine, committer Committer, cfg Config) *Controller {
	if engine == nil {
		engine = unsupportedEngine{}
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}

	return &Controller{
		logger:        logger,
		engine:        engine,
		commit:        committer,
		opts:          recog.DefaultOptions(cfg.Language),
		trailingSpace: cfg.TrailingSpace,
		state:         fsm.StateIdle,
		subs:          make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current read-only session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Status:     c.state,
		Transcript: c.tape.String(),
		Confidence: c.confidence,
		Error:      c.lastErr,
	}
}

// Subscribe registers a snapshot channel fired on every accumulation or
// state update. The returned cancel func releases the subscription.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 16)
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish fans the current snapshot out to subscribers without blocking.
func (c *Controller) publish() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	for _, sub := range c.subs {
		select {
		case sub <- snap:
		default:
		}
	}
	c.mu.Unlock()
}

// Start begins one listening attempt. It never returns an error: every
// failure is classified into session state. Suspends only at the
// microphone permission request.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state == fsm.StateListening {
		c.mu.Unlock()
		return
	}
	if !c.engine.Supported() {
		c.lastErr = newKindError(KindUnsupported)
		c.mu.Unlock()
		c.publish()
		return
	}

	token := uuid.NewString()
	c.pendingToken = token
	c.lastErr = nil
	// A prior start may have allocated a handle whose OnStart never
	// arrived. This attempt supersedes it, so release its session.
	superseded := c.pendingHandle
	c.pendingHandle = recog.NoHandle
	c.mu.Unlock()

	if superseded != recog.NoHandle {
		c.engine.Stop(superseded)
	}
	c.publish()

	err := c.engine.RequestMicPermission(ctx)

	c.mu.Lock()
	if c.pendingToken != token {
		// A stop or newer start superseded this attempt while the
		// permission request was in flight.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.pendingToken = ""
		c.lastErr = classifyPermission(err)
		c.mu.Unlock()
		c.logWarn("microphone permission refused", "error", err.Error())
		c.publish()
		return
	}

	// Engine callbacks arrive asynchronously, so holding the lock across
	// allocation guarantees pendingHandle is recorded before any of them
	// can be applied.
	handle := c.engine.Start(ctx, c.opts, recog.Callbacks{
		OnStart:  c.onStart,
		OnResult: c.onResult,
		OnError:  c.onError,
		OnEnd:    c.onEnd,
	})

	// Allocation point: events from any earlier session are stale now.
	c.activeHandle = recog.NoHandle
	c.pendingHandle = handle
	c.mu.Unlock()
}

// Stop ends the listening session. The visible transition to idle is
// immediate; engine teardown is fire-and-forget. A stop also invalidates
// any start whose permission request is still in flight.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.pendingToken = ""
	pending := c.pendingHandle
	c.pendingHandle = recog.NoHandle

	if c.state != fsm.StateListening {
		c.mu.Unlock()
		if pending != recog.NoHandle {
			c.engine.Stop(pending)
		}
		return
	}

	handle := c.activeHandle
	next, err := fsm.Transition(c.state, fsm.EventStop)
	if err != nil {
		c.mu.Unlock()
		return
	}
	c.state = next
	finalText := c.tape.Final()
	c.mu.Unlock()

	c.engine.Stop(handle)
	if finalText != "" {
		go c.dispatchCommit(finalText)
	}
	c.publish()
}

// Reset clears transcript, confidence, and error without changing status.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.tape.Reset()
	c.confidence = 0
	c.lastErr = nil
	c.mu.Unlock()
	c.publish()
}

// onStart confirms capture began for a pending handle.
func (c *Controller) onStart(handle recog.Handle) {
	c.mu.Lock()
	if handle != c.pendingHandle {
		c.mu.Unlock()
		return
	}
	next, err := fsm.Transition(c.state, fsm.EventStarted)
	if err != nil {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.activeHandle = handle
	c.pendingHandle = recog.NoHandle
	c.pendingToken = ""
	// Residual errors auto-dismiss once the engine actually starts.
	c.lastErr = nil
	c.mu.Unlock()
	c.publish()
}

// onResult folds one recognition batch into the transcript tape.
func (c *Controller) onResult(handle recog.Handle, batch []recog.Result) {
	c.mu.Lock()
	if handle != c.activeHandle {
		c.mu.Unlock()
		return
	}
	for _, result := range batch {
		if result.Final {
			c.tape.AppendFinal(result.Text)
			c.confidence = result.Confidence
		} else {
			c.tape.SetInterim(result.Text)
		}
	}
	c.mu.Unlock()
	c.publish()
}

// onError classifies an engine failure and lands the session idle.
func (c *Controller) onError(handle recog.Handle, code string) {
	c.mu.Lock()
	if handle != c.activeHandle && handle != c.pendingHandle {
		c.mu.Unlock()
		return
	}
	c.toIdleViaErrorLocked()
	c.lastErr = classifyCode(code)
	c.activeHandle = recog.NoHandle
	c.pendingHandle = recog.NoHandle
	c.pendingToken = ""
	c.mu.Unlock()

	c.engine.Stop(handle)
	c.logWarn("recognition error", "code", code)
	c.publish()
}

// onEnd handles engine-initiated termination under the current handle.
// A stale end, or an end after the user already stopped, is a no-op.
func (c *Controller) onEnd(handle recog.Handle) {
	c.mu.Lock()
	if handle != c.activeHandle || c.state != fsm.StateListening {
		c.mu.Unlock()
		return
	}
	next, err := fsm.Transition(c.state, fsm.EventEnd)
	if err != nil {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()
	c.publish()
}

// toIdleViaErrorLocked traverses errored and back to idle best-effort.
func (c *Controller) toIdleViaErrorLocked() {
	if next, err := fsm.Transition(c.state, fsm.EventFail); err == nil {
		c.state = next
	}
	if next, err := fsm.Transition(c.state, fsm.EventReset); err == nil {
		c.state = next
	}
}

// dispatchCommit delivers the finalized prompt downstream.
func (c *Controller) dispatchCommit(prompt string) {
	if c.trailingSpace {
		prompt += " "
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	if err := c.commit.Commit(ctx, prompt); err != nil {
		c.logWarn("prompt commit failed", "error", err.Error())
	}
}

func (c *Controller) logWarn(message string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(message, args...)
}

// unsupportedEngine preserves controller flow when no engine is wired.
type unsupportedEngine struct{}

func (unsupportedEngine) Supported() bool                                { return false }
func (unsupportedEngine) RequestMicPermission(context.Context) error     { return nil }
func (unsupportedEngine) Start(context.Context, recog.Options, recog.Callbacks) recog.Handle {
	return recog.NoHandle
}
func (unsupportedEngine) Stop(recog.Handle) {}
