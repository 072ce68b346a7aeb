package session

import (
	"errors"
	"fmt"

	"github.com/limnhq/limn/internal/audio"
	"github.com/limnhq/limn/internal/recog"
)

// Kind is the stable classified error taxonomy surfaced to the UI.
type Kind string

const (
	KindUnsupported       Kind = "unsupported"
	KindPermissionDenied  Kind = "permission-denied"
	KindDeviceNotFound    Kind = "device-not-found"
	KindDeviceUnsupported Kind = "device-unsupported"
	KindDeviceUnavailable Kind = "device-unavailable"
	KindNoSpeechDetected  Kind = "no-speech-detected"
	KindNetworkError      Kind = "network-error"
	KindServiceDenied     Kind = "service-denied"
	KindConfigurationErr  Kind = "configuration-error"
	KindUnknown           Kind = "unknown"
)

// NeedsRemediation reports whether the UI should show platform-specific
// permission remediation steps instead of a plain retry action.
func (k Kind) NeedsRemediation() bool {
	return k == KindPermissionDenied
}

// SessionError is one classified error surfaced as session state.
type SessionError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *SessionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Classify maps an engine error code to exactly one taxonomy kind. Pure
// function of the code, independent of controller state.
func Classify(code string) Kind {
	switch code {
	case recog.CodeNotAllowed, "permission-denied":
		return KindPermissionDenied
	case recog.CodeNoSpeech:
		return KindNoSpeechDetected
	case recog.CodeAudioCapture, audio.PermCodeNotFound:
		return KindDeviceUnavailable
	case recog.CodeNetwork:
		return KindNetworkError
	case recog.CodeServiceNotAllowed:
		return KindServiceDenied
	case recog.CodeBadGrammar, recog.CodeLanguageNotSupported:
		return KindConfigurationErr
	default:
		return KindUnknown
	}
}

// classifyCode builds the session error for one engine error code.
func classifyCode(code string) *SessionError {
	kind := Classify(code)
	return &SessionError{Kind: kind, Code: code, Message: guidanceFor(kind, code)}
}

// classifyPermission builds the session error for a failed microphone
// permission request.
func classifyPermission(err error) *SessionError {
	kind := KindDeviceUnavailable
	code := ""

	var perm *audio.PermissionError
	if errors.As(err, &perm) {
		code = perm.Code
		switch perm.Code {
		case audio.PermCodeDenied:
			kind = KindPermissionDenied
		case audio.PermCodeNotFound:
			kind = KindDeviceNotFound
		case audio.PermCodeUnsupported:
			kind = KindDeviceUnsupported
		case audio.PermCodeUnavailable:
			kind = KindDeviceUnavailable
		}
	}

	return &SessionError{Kind: kind, Code: code, Message: guidanceFor(kind, code)}
}

// newKindError builds a session error with no underlying engine code.
func newKindError(kind Kind) *SessionError {
	return &SessionError{Kind: kind, Message: guidanceFor(kind, "")}
}

// guidanceFor renders the user-facing message for one kind.
func guidanceFor(kind Kind, code string) string {
	switch kind {
	case KindUnsupported:
		return "Speech capture is not supported in this environment."
	case KindPermissionDenied:
		return "Microphone access was denied. Allow microphone access and try again."
	case KindDeviceNotFound:
		return "No microphone was found. Connect one and try again."
	case KindDeviceUnsupported:
		return "The microphone does not support the required audio format."
	case KindDeviceUnavailable:
		return "The microphone is unavailable. Check your audio hardware and try again."
	case KindNoSpeechDetected:
		return "No speech was detected. Try again."
	case KindNetworkError:
		return "A network error interrupted speech recognition. Try again."
	case KindServiceDenied:
		return "The speech service refused the request. Try again."
	case KindConfigurationErr:
		return "The recognition configuration was rejected. Try again."
	default:
		if code != "" {
			return fmt.Sprintf("Speech recognition failed (%s). Try again.", code)
		}
		return "Speech recognition failed. Try again."
	}
}
