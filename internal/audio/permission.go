package audio

import (
	"context"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Permission probe outcome codes, consumed by session error classification.
const (
	PermCodeDenied      = "not-allowed"
	PermCodeNotFound    = "device-not-found"
	PermCodeUnsupported = "device-unsupported"
	PermCodeUnavailable = "device-unavailable"
)

// PermissionError wraps a Pulse failure with a stable permission code.
type PermissionError struct {
	Code string
	Err  error
}

func (e *PermissionError) Error() string {
	if e.Err == nil {
		return "microphone permission: " + e.Code
	}
	return "microphone permission (" + e.Code + "): " + e.Err.Error()
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// ProbePermission momentarily opens the default input source to surface
// any access prompt or denial, then releases it. No audio is retained.
// The device is released on every exit path regardless of outcome.
func ProbePermission(_ context.Context) error {
	client, err := newClient()
	if err != nil {
		return &PermissionError{Code: classifyPulseError(err, PermCodeUnavailable), Err: err}
	}
	defer client.Close()

	source, err := client.DefaultSource()
	if err != nil {
		return &PermissionError{Code: classifyPulseError(err, PermCodeNotFound), Err: err}
	}

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(discardPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordMediaName("limn permission probe"),
	)
	if err != nil {
		return &PermissionError{Code: classifyPulseError(err, PermCodeUnsupported), Err: err}
	}
	defer stream.Close()

	stream.Start()
	stream.Stop()
	return nil
}

// classifyPulseError promotes explicit denial wording over the stage default.
func classifyPulseError(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "access denied"), strings.Contains(message, "permission"):
		return PermCodeDenied
	case strings.Contains(message, "no such entity"), strings.Contains(message, "not found"):
		return PermCodeNotFound
	default:
		return fallback
	}
}

func discardPCM(buffer []byte) (int, error) {
	return len(buffer), nil
}
