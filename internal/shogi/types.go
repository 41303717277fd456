package shogi

import "fmt"

// Color identifies a side. Sente (black) moves first and plays towards rank 1.
type Color uint8

const (
	Sente Color = iota
	Gote
)

func (c Color) Opponent() Color { return c ^ 1 }

func (c Color) String() string {
	if c == Gote {
		return "gote"
	}
	return "sente"
}

// Kind is a piece type, promoted kinds included.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	ProPawn
	ProLance
	ProKnight
	ProSilver
	Horse
	Dragon
)

// HandKinds lists the kinds that can be held in hand, in SFEN hand order.
var HandKinds = []Kind{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

func (k Kind) CanPromote() bool {
	switch k {
	case Pawn, Lance, Knight, Silver, Bishop, Rook:
		return true
	}
	return false
}

func (k Kind) IsPromoted() bool { return k >= ProPawn && k <= Dragon }

// Promoted returns the promoted form of k, or NoKind when k cannot promote.
func (k Kind) Promoted() Kind {
	switch k {
	case Pawn:
		return ProPawn
	case Lance:
		return ProLance
	case Knight:
		return ProKnight
	case Silver:
		return ProSilver
	case Bishop:
		return Horse
	case Rook:
		return Dragon
	}
	return NoKind
}

// Unpromoted returns the kind a captured piece turns into in hand.
func (k Kind) Unpromoted() Kind {
	switch k {
	case ProPawn:
		return Pawn
	case ProLance:
		return Lance
	case ProKnight:
		return Knight
	case ProSilver:
		return Silver
	case Horse:
		return Bishop
	case Dragon:
		return Rook
	}
	return k
}

var kindLetters = map[Kind]byte{
	Pawn: 'P', Lance: 'L', Knight: 'N', Silver: 'S', Gold: 'G', Bishop: 'B', Rook: 'R', King: 'K',
}

func (k Kind) Letter() byte {
	if k.IsPromoted() {
		return kindLetters[k.Unpromoted()]
	}
	return kindLetters[k]
}

func kindFromLetter(b byte) (Kind, bool) {
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	for k, l := range kindLetters {
		if l == b {
			return k, true
		}
	}
	return NoKind, false
}

// Piece is a colored piece on the board. The zero value is an empty square.
type Piece struct {
	Kind  Kind
	Color Color
}

func (p Piece) IsEmpty() bool { return p.Kind == NoKind }

// Square indexes the 81 board squares; file and rank both run 1..9.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 1 || file > 9 || rank < 1 || rank > 9 {
		return NoSquare
	}
	return Square((file-1)*9 + rank - 1)
}

func (s Square) Valid() bool { return s >= 0 && s < 81 }
func (s Square) File() int   { return int(s)/9 + 1 }
func (s Square) Rank() int   { return int(s)%9 + 1 }

// String renders the square in USI form, e.g. "7g".
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%d%c", s.File(), 'a'+s.Rank()-1)
}

// Move is either a board move (From set) or a drop (Drop set, From == NoSquare).
type Move struct {
	From    Square
	To      Square
	Drop    Kind
	Promote bool
}

func (m Move) IsDrop() bool { return m.Drop != NoKind }

// String renders the move in USI notation.
func (m Move) String() string {
	if m.IsDrop() {
		return fmt.Sprintf("%c*%s", m.Drop.Letter(), m.To)
	}
	s := m.From.String() + m.To.String()
	if m.Promote {
		s += "+"
	}
	return s
}
