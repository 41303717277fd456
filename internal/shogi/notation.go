package shogi

// Notation groups the notation helpers behind one value so callers can
// depend on an interface.
type Notation struct{}

// ParseStandalone parses context-free USI move text.
func (Notation) ParseStandalone(text string) (Move, error) { return ParseUSIMove(text) }

// ParseTranscript replays a KI2 transcript from initial.
func (Notation) ParseTranscript(initial, text string) (*Position, error) {
	return ParseKI2(initial, text)
}

// Transcript renders the moves of pos as KI2.
func (Notation) Transcript(pos *Position) (string, error) { return KI2Transcript(pos) }

// Humanize renders mv played from pos as KI2.
func (Notation) Humanize(pos *Position, mv Move) (string, bool) {
	s, err := FormatKI2(pos, mv)
	if err != nil {
		return "", false
	}
	return s, true
}
