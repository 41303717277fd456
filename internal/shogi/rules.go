package shogi

import (
	"errors"
	"fmt"
)

// Reasons a move is rejected by Rules.Apply.
var (
	ErrNoPiece       = errors.New("no piece on source square")
	ErrWrongSide     = errors.New("piece belongs to the opponent")
	ErrUnreachable   = errors.New("piece cannot reach destination")
	ErrBadPromotion  = errors.New("promotion not allowed")
	ErrMustPromote   = errors.New("piece must promote")
	ErrNotInHand     = errors.New("piece not in hand")
	ErrOccupied      = errors.New("drop square occupied")
	ErrDoublePawn    = errors.New("two unpromoted pawns on one file")
	ErrPawnDropMate  = errors.New("pawn drop gives mate")
	ErrSelfCheck     = errors.New("king left in check")
	ErrInvalidSquare = errors.New("square off the board")
)

// Rules is the legality engine.
type Rules struct{}

// Apply validates mv against pos and returns the resulting position.
func (Rules) Apply(pos *Position, mv Move) (*Position, error) {
	if err := pos.check(mv, true); err != nil {
		return nil, fmt.Errorf("%s: %w", mv, err)
	}
	return pos.do(mv), nil
}

func (p *Position) check(mv Move, pawnDropMate bool) error {
	if !mv.To.Valid() {
		return ErrInvalidSquare
	}
	if mv.IsDrop() {
		if mv.Promote || mv.Drop == King || mv.Drop > King {
			return ErrBadPromotion
		}
		if p.hands[p.side][mv.Drop] == 0 {
			return ErrNotInHand
		}
		if !p.board[mv.To].IsEmpty() {
			return ErrOccupied
		}
		if deadEnd(mv.Drop, mv.To, p.side) {
			return ErrMustPromote
		}
		if mv.Drop == Pawn && p.pawnOnFile(mv.To.File(), p.side) {
			return ErrDoublePawn
		}
	} else {
		if !mv.From.Valid() {
			return ErrInvalidSquare
		}
		pc := p.board[mv.From]
		if pc.IsEmpty() {
			return ErrNoPiece
		}
		if pc.Color != p.side {
			return ErrWrongSide
		}
		if t := p.board[mv.To]; !t.IsEmpty() && t.Color == p.side {
			return ErrUnreachable
		}
		reach := false
		for _, t := range p.targets(mv.From) {
			if t == mv.To {
				reach = true
				break
			}
		}
		if !reach {
			return ErrUnreachable
		}
		if mv.Promote {
			if !pc.Kind.CanPromote() || !(inPromotionZone(mv.From, p.side) || inPromotionZone(mv.To, p.side)) {
				return ErrBadPromotion
			}
		} else if deadEnd(pc.Kind, mv.To, p.side) {
			return ErrMustPromote
		}
	}

	next := p.do(mv)
	if k := next.kingSquare(p.side); k.Valid() && next.attacked(k, next.side) {
		return ErrSelfCheck
	}
	if pawnDropMate && mv.Drop == Pawn && next.InCheck() && !next.hasLegalMove(false) {
		return ErrPawnDropMate
	}
	return nil
}

// Outcome is the result class of a position.
type Outcome uint8

const (
	Ongoing Outcome = iota
	SenteWins
	GoteWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case SenteWins:
		return "sente_wins"
	case GoteWins:
		return "gote_wins"
	case Draw:
		return "draw"
	}
	return "ongoing"
}

// Reason explains a finished game.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonCheckmate      Reason = "checkmate"
	ReasonNoLegalMoves   Reason = "no-legal-moves"
	ReasonRepetition     Reason = "repetition"
	ReasonPerpetualCheck Reason = "perpetual-check"
)

type Status struct {
	Outcome Outcome
	Reason  Reason
}

func (s Status) Finished() bool { return s.Outcome != Ongoing }

func winner(c Color) Outcome {
	if c == Gote {
		return GoteWins
	}
	return SenteWins
}

// Status classifies pos. The side to move loses when it has no legal move;
// the fourth occurrence of a position is a draw unless one side gave check
// throughout the cycle, in which case that side loses.
func (Rules) Status(pos *Position) Status {
	if !pos.hasLegalMove(true) {
		reason := ReasonNoLegalMoves
		if pos.InCheck() {
			reason = ReasonCheckmate
		}
		return Status{Outcome: winner(pos.side.Opponent()), Reason: reason}
	}
	return repetition(pos)
}

const repetitionLimit = 4

func repetition(pos *Position) Status {
	start, err := ParseSFEN(pos.initial)
	if err != nil || len(pos.moves) == 0 {
		return Status{}
	}
	keys := make([]string, 0, len(pos.moves)+1)
	checks := make([]bool, 0, len(pos.moves)+1)
	sides := make([]Color, 0, len(pos.moves)+1)
	cur := start
	for i := 0; ; i++ {
		keys = append(keys, cur.key())
		checks = append(checks, cur.InCheck())
		sides = append(sides, cur.side)
		if i == len(pos.moves) {
			break
		}
		cur = cur.do(pos.moves[i])
	}
	last := keys[len(keys)-1]
	first, seen := -1, 0
	for i, k := range keys {
		if k == last {
			if first < 0 {
				first = i
			}
			seen++
		}
	}
	if seen < repetitionLimit {
		return Status{}
	}
	for _, victim := range []Color{Sente, Gote} {
		all, found := true, false
		for i := first; i < len(keys); i++ {
			if sides[i] != victim {
				continue
			}
			found = true
			if !checks[i] {
				all = false
				break
			}
		}
		if found && all {
			return Status{Outcome: winner(victim), Reason: ReasonPerpetualCheck}
		}
	}
	return Status{Outcome: Draw, Reason: ReasonRepetition}
}
