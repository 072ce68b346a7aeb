// Package recog wraps the platform recognition and microphone-permission
// primitives behind a uniform start/stop/event adapter interface.
package recog

import "context"

// Handle identifies one underlying recognition session. Events carry the
// handle they were issued under so stale deliveries can be discarded.
type Handle string

// NoHandle is the zero value returned when no session exists.
const NoHandle Handle = ""

// Options configures one recognition session.
type Options struct {
	Continuous      bool
	InterimResults  bool
	Language        string
	MaxAlternatives int
}

// DefaultOptions returns the continuous dictation configuration.
func DefaultOptions(language string) Options {
	return Options{
		Continuous:      true,
		InterimResults:  true,
		Language:        language,
		MaxAlternatives: 1,
	}
}

// Result is one recognized segment. Confidence is populated for final
// results only.
type Result struct {
	Text       string
	Confidence float64
	Final      bool
}

// Callbacks are the event hooks registered at session start. Batches in
// OnResult preserve recognition order; the adapter never reorders them.
type Callbacks struct {
	OnStart  func(Handle)
	OnResult func(Handle, []Result)
	OnError  func(Handle, string)
	OnEnd    func(Handle)
}

// normalized fills nil hooks with no-ops so call sites never nil-check.
func (c Callbacks) normalized() Callbacks {
	if c.OnStart == nil {
		c.OnStart = func(Handle) {}
	}
	if c.OnResult == nil {
		c.OnResult = func(Handle, []Result) {}
	}
	if c.OnError == nil {
		c.OnError = func(Handle, string) {}
	}
	if c.OnEnd == nil {
		c.OnEnd = func(Handle) {}
	}
	return c
}

// Error codes reported through OnError.
const (
	CodeNotAllowed           = "not-allowed"
	CodeNoSpeech             = "no-speech"
	CodeAudioCapture         = "audio-capture"
	CodeNetwork              = "network"
	CodeServiceNotAllowed    = "service-not-allowed"
	CodeBadGrammar           = "bad-grammar"
	CodeLanguageNotSupported = "language-not-supported"
)

// Engine is the recognition capability boundary consumed by the session
// controller. Start always returns a handle; connection failures surface
// through OnError under that handle. Callbacks are never invoked
// synchronously from within Start. Stop is idempotent and stopping an
// unknown handle is a no-op.
type Engine interface {
	Supported() bool
	RequestMicPermission(context.Context) error
	Start(context.Context, Options, Callbacks) Handle
	Stop(Handle)
}
