package bot

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"

	"github.com/park285/bsky-shogi-thread/internal/obslog"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// ResolvedMove is a legal move taken from a candidate, already applied.
type ResolvedMove struct {
	Move      shogi.Move
	Notation  string
	Position  *shogi.Position
	Candidate Candidate
}

type parseStrategy struct {
	name  string
	parse func(r *Resolver, text string) (shogi.Move, error)
}

// Parsers tried in order; the first one that reads the text wins.
var parseStrategies = []parseStrategy{
	{"usi", (*Resolver).parseStandalone},
	{"ki2", (*Resolver).parseContextual},
}

var errEmptyText = errors.New("empty text")

// Resolver turns candidate texts into moves against one position.
type Resolver struct {
	pos        *shogi.Position
	rules      Rules
	notation   Notation
	transcript string
	contextual bool
}

// NewResolver prepares a resolver for pos. The game transcript is computed
// once here and reused for every candidate.
func NewResolver(pos *shogi.Position, rules Rules, notation Notation) *Resolver {
	r := &Resolver{pos: pos, rules: rules, notation: notation, contextual: true}
	t, err := notation.Transcript(pos)
	if err != nil {
		obslog.L().Warn("transcript_unavailable", zap.Error(err))
		r.contextual = false
	}
	r.transcript = t
	return r
}

func (r *Resolver) Position() *shogi.Position { return r.pos }

// Try parses text and applies the move. Failures are *MoveParseError or
// *IllegalMoveError.
func (r *Resolver) Try(text string) (*ResolvedMove, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &MoveParseError{Text: text, Err: errEmptyText}
	}

	var (
		mv     shogi.Move
		found  bool
		misses error
	)
	for _, s := range parseStrategies {
		m, err := s.parse(r, text)
		if err != nil {
			misses = multierr.Append(misses, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		mv, found = m, true
		break
	}
	if !found {
		return nil, &MoveParseError{Text: text, Err: misses}
	}

	next, err := r.rules.Apply(r.pos, mv)
	if err != nil {
		return nil, &IllegalMoveError{Text: text, Move: mv.String(), Err: err}
	}
	human, ok := r.notation.Humanize(r.pos, mv)
	if !ok {
		human = mv.String()
	}
	return &ResolvedMove{Move: mv, Notation: human, Position: next}, nil
}

func (r *Resolver) parseStandalone(text string) (shogi.Move, error) {
	return r.notation.ParseStandalone(text)
}

var errTranscriptUnavailable = errors.New("transcript unavailable")

// parseContextual appends the first word of text to the game transcript and
// replays the whole game; the last move of the replay is the candidate.
func (r *Resolver) parseContextual(text string) (shogi.Move, error) {
	if !r.contextual {
		return shogi.Move{}, errTranscriptUnavailable
	}
	word := widenDigits(firstMoveWord(text))
	game := word
	if r.transcript != "" {
		game = r.transcript + " " + word
	}
	replayed, err := r.notation.ParseTranscript(r.pos.InitialSFEN(), game)
	if err != nil {
		return shogi.Move{}, err
	}
	moves := replayed.Moves()
	if len(moves) != len(r.pos.Moves())+1 {
		return shogi.Move{}, fmt.Errorf("transcript replay produced %d moves, want %d", len(moves), len(r.pos.Moves())+1)
	}
	return moves[len(moves)-1], nil
}

// firstMoveWord returns the first whitespace separated word, keeping a bare
// "同" together with the piece that follows it.
func firstMoveWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	w := fields[0]
	bare := strings.TrimLeft(w, "▲△☗☖")
	if bare == "同" && len(fields) > 1 {
		w += fields[1]
	}
	return w
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

// widenDigits maps ASCII digits to their full-width forms.
func widenDigits(s string) string {
	t := runes.If(runes.Predicate(isASCIIDigit), width.Widen, nil)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
