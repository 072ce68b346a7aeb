package recog

import (
	"context"
	"log/slog"

	"github.com/limnhq/limn/internal/audio"
)

// AudioStream is a live PCM chunk stream owned by one recognition session.
type AudioStream interface {
	Chunks() <-chan []byte
	Stop() error
}

// AudioSource opens capture streams on demand.
type AudioSource interface {
	Open(context.Context) (AudioStream, error)
}

// PulseSource resolves the configured input preference and opens a
// Pulse capture stream for each session.
type PulseSource struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

func (s *PulseSource) Open(ctx context.Context) (AudioStream, error) {
	selection, err := audio.SelectDevice(ctx, s.Input, s.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && s.Logger != nil {
		s.Logger.Warn(selection.Warning)
	}
	return audio.StartCapture(ctx, selection.Device)
}
