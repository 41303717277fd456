package shogi

// Step vectors are written from sente's point of view: a negative rank delta
// points towards rank 1. Gote uses the mirrored vectors.
type vec struct{ df, dr int }

var (
	goldSteps   = []vec{{0, -1}, {-1, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}}
	silverSteps = []vec{{0, -1}, {-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	kingSteps   = []vec{{0, -1}, {-1, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}, {-1, 1}, {1, 1}}
	orthogonal  = []vec{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	diagonal    = []vec{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
)

type movement struct {
	steps  []vec
	slides []vec
}

var movements = map[Kind]movement{
	Pawn:      {steps: []vec{{0, -1}}},
	Lance:     {slides: []vec{{0, -1}}},
	Knight:    {steps: []vec{{-1, -2}, {1, -2}}},
	Silver:    {steps: silverSteps},
	Gold:      {steps: goldSteps},
	King:      {steps: kingSteps},
	Bishop:    {slides: diagonal},
	Rook:      {slides: orthogonal},
	ProPawn:   {steps: goldSteps},
	ProLance:  {steps: goldSteps},
	ProKnight: {steps: goldSteps},
	ProSilver: {steps: goldSteps},
	Horse:     {steps: orthogonal, slides: diagonal},
	Dragon:    {steps: diagonal, slides: orthogonal},
}

func orient(v vec, c Color) vec {
	if c == Gote {
		return vec{-v.df, -v.dr}
	}
	return v
}

func offset(sq Square, v vec) Square {
	return NewSquare(sq.File()+v.df, sq.Rank()+v.dr)
}

// targets lists the squares the piece on from attacks, own pieces included.
func (p *Position) targets(from Square) []Square {
	pc := p.board[from]
	if pc.IsEmpty() {
		return nil
	}
	mv := movements[pc.Kind]
	var out []Square
	for _, v := range mv.steps {
		if to := offset(from, orient(v, pc.Color)); to.Valid() {
			out = append(out, to)
		}
	}
	for _, v := range mv.slides {
		v = orient(v, pc.Color)
		for to := offset(from, v); to.Valid(); to = offset(to, v) {
			out = append(out, to)
			if !p.board[to].IsEmpty() {
				break
			}
		}
	}
	return out
}

func (p *Position) attacked(sq Square, by Color) bool {
	for from := Square(0); from < 81; from++ {
		pc := p.board[from]
		if pc.IsEmpty() || pc.Color != by {
			continue
		}
		for _, t := range p.targets(from) {
			if t == sq {
				return true
			}
		}
	}
	return false
}

// InCheck reports whether the side to move has its king attacked.
func (p *Position) InCheck() bool {
	k := p.kingSquare(p.side)
	return k.Valid() && p.attacked(k, p.side.Opponent())
}

// relativeRank counts ranks from c's far side: 1 is the last rank c can reach.
func relativeRank(sq Square, c Color) int {
	if c == Gote {
		return 10 - sq.Rank()
	}
	return sq.Rank()
}

func inPromotionZone(sq Square, c Color) bool { return relativeRank(sq, c) <= 3 }

// deadEnd reports whether a piece of kind k would have no move left on sq.
func deadEnd(k Kind, sq Square, c Color) bool {
	r := relativeRank(sq, c)
	switch k {
	case Pawn, Lance:
		return r == 1
	case Knight:
		return r <= 2
	}
	return false
}

// pseudoMoves generates piece-reachable moves and drops for the side to move,
// without checking whether the own king is left in check.
func (p *Position) pseudoMoves() []Move {
	var out []Move
	for from := Square(0); from < 81; from++ {
		pc := p.board[from]
		if pc.IsEmpty() || pc.Color != p.side {
			continue
		}
		for _, to := range p.targets(from) {
			if t := p.board[to]; !t.IsEmpty() && t.Color == p.side {
				continue
			}
			canPromote := pc.Kind.CanPromote() && (inPromotionZone(from, p.side) || inPromotionZone(to, p.side))
			if canPromote {
				out = append(out, Move{From: from, To: to, Promote: true})
			}
			if !deadEnd(pc.Kind, to, p.side) {
				out = append(out, Move{From: from, To: to})
			}
		}
	}
	for _, k := range HandKinds {
		if p.hands[p.side][k] == 0 {
			continue
		}
		for to := Square(0); to < 81; to++ {
			if !p.board[to].IsEmpty() || deadEnd(k, to, p.side) {
				continue
			}
			if k == Pawn && p.pawnOnFile(to.File(), p.side) {
				continue
			}
			out = append(out, Move{From: NoSquare, To: to, Drop: k})
		}
	}
	return out
}

func (p *Position) pawnOnFile(file int, c Color) bool {
	for rank := 1; rank <= 9; rank++ {
		if pc := p.board[NewSquare(file, rank)]; pc.Kind == Pawn && pc.Color == c {
			return true
		}
	}
	return false
}

// LegalMoves lists every legal move for the side to move.
func (p *Position) LegalMoves() []Move { return p.legalMoves(true) }

func (p *Position) legalMoves(pawnDropMate bool) []Move {
	var out []Move
	for _, mv := range p.pseudoMoves() {
		if p.check(mv, pawnDropMate) == nil {
			out = append(out, mv)
		}
	}
	return out
}

func (p *Position) hasLegalMove(pawnDropMate bool) bool {
	for _, mv := range p.pseudoMoves() {
		if p.check(mv, pawnDropMate) == nil {
			return true
		}
	}
	return false
}
