package shogi

// StartSFEN is the standard even-game starting position.
const StartSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// Position is a full game state: placement, hands, side to move, ply and the
// moves applied since the position it was built from. Positions are treated
// as values; Apply returns a new one.
type Position struct {
	board   [81]Piece
	hands   [2][King]int
	side    Color
	ply     int
	initial string
	moves   []Move
}

// Initial returns the standard starting position at ply 1.
func Initial() *Position {
	p, err := ParseSFEN(StartSFEN)
	if err != nil {
		panic("shogi: bad start sfen: " + err.Error())
	}
	return p
}

func (p *Position) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return p.board[sq]
}

// Hand returns how many pieces of kind k color c holds.
func (p *Position) Hand(c Color, k Kind) int {
	if k <= NoKind || k >= King {
		return 0
	}
	return p.hands[c][k]
}

func (p *Position) SideToMove() Color { return p.side }
func (p *Position) Ply() int          { return p.ply }

// InitialSFEN is the SFEN of the position the move list starts from.
func (p *Position) InitialSFEN() string { return p.initial }

func (p *Position) Moves() []Move { return append([]Move(nil), p.moves...) }

func (p *Position) LastMove() (Move, bool) {
	if len(p.moves) == 0 {
		return Move{}, false
	}
	return p.moves[len(p.moves)-1], true
}

func (p *Position) Clone() *Position {
	c := *p
	c.moves = append([]Move(nil), p.moves...)
	return &c
}

// Equal reports whether both positions agree on placement, hands, side to
// move, ply and move list.
func (p *Position) Equal(o *Position) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.board != o.board || p.hands != o.hands || p.side != o.side || p.ply != o.ply {
		return false
	}
	if len(p.moves) != len(o.moves) {
		return false
	}
	for i := range p.moves {
		if p.moves[i] != o.moves[i] {
			return false
		}
	}
	return true
}

// Replay rebuilds the move list on top of the initial position.
// It is the inverse of the (InitialSFEN, Moves) pair.
func Replay(initial string, moves []Move) (*Position, error) {
	pos, err := ParseSFEN(initial)
	if err != nil {
		return nil, err
	}
	for _, mv := range moves {
		next, err := Rules{}.Apply(pos, mv)
		if err != nil {
			return nil, err
		}
		pos = next
	}
	return pos, nil
}

func (p *Position) kingSquare(c Color) Square {
	for sq := Square(0); sq < 81; sq++ {
		if pc := p.board[sq]; pc.Kind == King && pc.Color == c {
			return sq
		}
	}
	return NoSquare
}

// do applies mv without any validation.
func (p *Position) do(mv Move) *Position {
	n := p.Clone()
	if mv.IsDrop() {
		n.board[mv.To] = Piece{Kind: mv.Drop, Color: p.side}
		n.hands[p.side][mv.Drop]--
	} else {
		pc := n.board[mv.From]
		if captured := n.board[mv.To]; !captured.IsEmpty() {
			n.hands[p.side][captured.Kind.Unpromoted()]++
		}
		n.board[mv.From] = Piece{}
		if mv.Promote {
			pc.Kind = pc.Kind.Promoted()
		}
		n.board[mv.To] = pc
	}
	n.side = p.side.Opponent()
	n.ply++
	n.moves = append(n.moves, mv)
	return n
}

// key identifies the position for repetition purposes.
func (p *Position) key() string {
	return sfenBoard(p) + " " + sfenSide(p.side) + " " + sfenHands(p)
}
