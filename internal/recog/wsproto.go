package recog

import (
	"encoding/json"
	"fmt"
)

// Wire frames exchanged with the streaming recognition service. Audio
// travels as binary messages; everything else is JSON text frames.

type serverFrame struct {
	Type         string              `json:"type"`
	IsFinal      bool                `json:"is_final"`
	Code         string              `json:"code,omitempty"`
	Message      string              `json:"message,omitempty"`
	Alternatives []serverAlternative `json:"alternatives,omitempty"`
}

type serverAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

const (
	frameTypeResult = "result"
	frameTypeError  = "error"
	frameTypeEnd    = "end"
)

type finalizeFrame struct {
	Type string `json:"type"`
}

func encodeFinalize() []byte {
	data, _ := json.Marshal(finalizeFrame{Type: "finalize"})
	return data
}

func decodeServerFrame(data []byte) (serverFrame, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return serverFrame{}, fmt.Errorf("decode engine frame: %w", err)
	}
	if frame.Type == "" {
		return serverFrame{}, fmt.Errorf("engine frame missing type")
	}
	return frame, nil
}

// results maps a result frame to adapter results, honoring the
// single-alternative session configuration.
func (f serverFrame) results() []Result {
	if f.Type != frameTypeResult || len(f.Alternatives) == 0 {
		return nil
	}
	top := f.Alternatives[0]
	if top.Transcript == "" {
		return nil
	}
	result := Result{Text: top.Transcript, Final: f.IsFinal}
	if f.IsFinal {
		result.Confidence = top.Confidence
	}
	return []Result{result}
}

// errorCode extracts a classifiable code from an error frame.
func (f serverFrame) errorCode() string {
	if f.Code != "" {
		return f.Code
	}
	return "unknown"
}
