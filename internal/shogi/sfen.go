package shogi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidSFEN = errors.New("invalid sfen")

// ParseSFEN builds a position from a SFEN string. The move-count field is
// optional and defaults to 1.
func ParseSFEN(s string) (*Position, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 && len(fields) != 4 {
		return nil, fmt.Errorf("%w: want 3 or 4 fields, got %d", ErrInvalidSFEN, len(fields))
	}
	p := &Position{ply: 1}
	if err := parseSFENBoard(fields[0], p); err != nil {
		return nil, err
	}
	switch fields[1] {
	case "b":
		p.side = Sente
	case "w":
		p.side = Gote
	default:
		return nil, fmt.Errorf("%w: side %q", ErrInvalidSFEN, fields[1])
	}
	if err := parseSFENHands(fields[2], p); err != nil {
		return nil, err
	}
	if len(fields) == 4 {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: move count %q", ErrInvalidSFEN, fields[3])
		}
		p.ply = n
	}
	p.initial = p.SFEN()
	return p, nil
}

func parseSFENBoard(board string, p *Position) error {
	ranks := strings.Split(board, "/")
	if len(ranks) != 9 {
		return fmt.Errorf("%w: %d ranks", ErrInvalidSFEN, len(ranks))
	}
	for i, text := range ranks {
		rank := i + 1
		file := 9
		promoted := false
		for j := 0; j < len(text); j++ {
			c := text[j]
			switch {
			case c >= '1' && c <= '9':
				if promoted {
					return fmt.Errorf("%w: dangling '+' in rank %d", ErrInvalidSFEN, rank)
				}
				file -= int(c - '0')
			case c == '+':
				promoted = true
			default:
				kind, ok := kindFromLetter(c)
				if !ok || file < 1 {
					return fmt.Errorf("%w: bad piece %q in rank %d", ErrInvalidSFEN, c, rank)
				}
				color := Sente
				if c >= 'a' && c <= 'z' {
					color = Gote
				}
				if promoted {
					if kind = kind.Promoted(); kind == NoKind {
						return fmt.Errorf("%w: %q cannot promote", ErrInvalidSFEN, c)
					}
					promoted = false
				}
				p.board[NewSquare(file, rank)] = Piece{Kind: kind, Color: color}
				file--
			}
		}
		if file != 0 || promoted {
			return fmt.Errorf("%w: rank %d does not cover nine files", ErrInvalidSFEN, rank)
		}
	}
	return nil
}

func parseSFENHands(hands string, p *Position) error {
	if hands == "-" {
		return nil
	}
	count := 0
	for i := 0; i < len(hands); i++ {
		c := hands[i]
		if c >= '0' && c <= '9' {
			count = count*10 + int(c-'0')
			continue
		}
		kind, ok := kindFromLetter(c)
		if !ok || kind == King {
			return fmt.Errorf("%w: bad hand piece %q", ErrInvalidSFEN, c)
		}
		if count == 0 {
			count = 1
		}
		color := Sente
		if c >= 'a' && c <= 'z' {
			color = Gote
		}
		p.hands[color][kind] += count
		count = 0
	}
	if count != 0 {
		return fmt.Errorf("%w: dangling hand count", ErrInvalidSFEN)
	}
	return nil
}

// SFEN renders the current position, including the move count.
func (p *Position) SFEN() string {
	return fmt.Sprintf("%s %s %s %d", sfenBoard(p), sfenSide(p.side), sfenHands(p), p.ply)
}

func sfenBoard(p *Position) string {
	var b strings.Builder
	for rank := 1; rank <= 9; rank++ {
		if rank > 1 {
			b.WriteByte('/')
		}
		empty := 0
		for file := 9; file >= 1; file-- {
			pc := p.board[NewSquare(file, rank)]
			if pc.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			b.WriteString(pieceLetters(pc))
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
	}
	return b.String()
}

func pieceLetters(pc Piece) string {
	l := pc.Kind.Letter()
	if pc.Color == Gote {
		l += 'a' - 'A'
	}
	if pc.Kind.IsPromoted() {
		return "+" + string(l)
	}
	return string(l)
}

func sfenSide(c Color) string {
	if c == Gote {
		return "w"
	}
	return "b"
}

func sfenHands(p *Position) string {
	var b strings.Builder
	for _, c := range []Color{Sente, Gote} {
		for _, k := range HandKinds {
			n := p.hands[c][k]
			if n == 0 {
				continue
			}
			if n > 1 {
				b.WriteString(strconv.Itoa(n))
			}
			b.WriteString(pieceLetters(Piece{Kind: k, Color: c}))
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}
