package shogi

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidUSI = errors.New("invalid usi move")

// ParseUSIMove parses "7g7f", "8h2b+" or "P*5e". Drop letters are accepted
// in either case; the dropping side is always the side to move.
func ParseUSIMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[1] == '*' {
		k, ok := kindFromLetter(s[0])
		if !ok || k == King {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidUSI, s)
		}
		to, ok := parseUSISquare(s[2:])
		if !ok {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidUSI, s)
		}
		return Move{From: NoSquare, To: to, Drop: k}, nil
	}
	if len(s) != 4 && !(len(s) == 5 && s[4] == '+') {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidUSI, s)
	}
	from, ok1 := parseUSISquare(s[0:2])
	to, ok2 := parseUSISquare(s[2:4])
	if !ok1 || !ok2 || from == to {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidUSI, s)
	}
	return Move{From: from, To: to, Promote: len(s) == 5}, nil
}

func parseUSISquare(s string) (Square, bool) {
	if len(s) != 2 || s[0] < '1' || s[0] > '9' || s[1] < 'a' || s[1] > 'i' {
		return NoSquare, false
	}
	return NewSquare(int(s[0]-'0'), int(s[1]-'a')+1), true
}

// ParseUSIPosition parses the argument of a USI "position" command:
// "startpos [moves ...]" or "sfen <sfen> [moves ...]". Moves are checked for
// legality while they are replayed.
func ParseUSIPosition(s string) (*Position, error) {
	fields := strings.Fields(s)
	if len(fields) > 0 && fields[0] == "position" {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty position", ErrInvalidSFEN)
	}
	var (
		pos  *Position
		rest []string
		err  error
	)
	switch fields[0] {
	case "startpos":
		pos, rest = Initial(), fields[1:]
	case "sfen":
		n := 1
		for n < len(fields) && n < 5 && fields[n] != "moves" {
			n++
		}
		if pos, err = ParseSFEN(strings.Join(fields[1:n], " ")); err != nil {
			return nil, err
		}
		rest = fields[n:]
	default:
		return nil, fmt.Errorf("%w: unknown position keyword %q", ErrInvalidSFEN, fields[0])
	}
	if len(rest) == 0 {
		return pos, nil
	}
	if rest[0] != "moves" {
		return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidSFEN, rest[0])
	}
	for _, tok := range rest[1:] {
		mv, err := ParseUSIMove(tok)
		if err != nil {
			return nil, err
		}
		if pos, err = (Rules{}).Apply(pos, mv); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// USIPosition renders pos as "sfen <initial> [moves ...]".
func USIPosition(pos *Position) string {
	var b strings.Builder
	b.WriteString("sfen ")
	b.WriteString(pos.initial)
	if len(pos.moves) > 0 {
		b.WriteString(" moves")
		for _, mv := range pos.moves {
			b.WriteByte(' ')
			b.WriteString(mv.String())
		}
	}
	return b.String()
}
