package ipc

// Request is one control command sent to the running daemon.
// Commands: status, start, stop, reset.
type Request struct {
	Command string `json:"command"`
}

// Response reports the session snapshot after the command applied.
type Response struct {
	OK         bool    `json:"ok"`
	Status     string  `json:"status,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
}
