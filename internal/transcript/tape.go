// Package transcript accumulates recognized speech as a finalized
// prefix of confirmed segments plus one provisional interim suffix.
package transcript

// Tape is the single transcript accumulator for one voice session.
// Finalized segments are append-only; the interim suffix is replaced
// wholesale on every recognition update and discarded on finalization.
type Tape struct {
	finals  []string
	interim string
}

// AppendFinal commits one confirmed segment and drops the interim suffix.
func (t *Tape) AppendFinal(text string) {
	cleaned := cleanSegment(text)
	if cleaned != "" {
		t.finals = append(t.finals, cleaned)
	}
	t.interim = ""
}

// SetInterim replaces the provisional suffix with the latest interim text.
func (t *Tape) SetInterim(text string) {
	t.interim = cleanSegment(text)
}

// Reset clears both the finalized prefix and the interim suffix.
func (t *Tape) Reset() {
	t.finals = nil
	t.interim = ""
}

// String renders the full transcript: finalized prefix then interim suffix.
func (t *Tape) String() string {
	return Assemble(t.finals, t.interim)
}

// Final renders only the confirmed prefix, used for commit on stop.
func (t *Tape) Final() string {
	return Assemble(t.finals, "")
}
