package shogi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usiMoves(t *testing.T, list ...string) []Move {
	t.Helper()
	out := make([]Move, 0, len(list))
	for _, s := range list {
		mv, err := ParseUSIMove(s)
		require.NoError(t, err, s)
		out = append(out, mv)
	}
	return out
}

func TestInitialRoundTrip(t *testing.T) {
	pos := Initial()
	assert.Equal(t, StartSFEN, pos.SFEN())
	assert.Equal(t, Sente, pos.SideToMove())
	assert.Equal(t, 1, pos.Ply())
	assert.Equal(t, Piece{Kind: King, Color: Gote}, pos.PieceAt(NewSquare(5, 1)))
	assert.Equal(t, Piece{Kind: Rook, Color: Sente}, pos.PieceAt(NewSquare(2, 8)))
}

func TestParseSFENHandsAndPromoted(t *testing.T) {
	pos, err := ParseSFEN("4k4/9/9/9/4+p4/9/9/9/4K4 w 2Pb 17")
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Hand(Sente, Pawn))
	assert.Equal(t, 1, pos.Hand(Gote, Bishop))
	assert.Equal(t, Piece{Kind: ProPawn, Color: Gote}, pos.PieceAt(NewSquare(5, 5)))
	assert.Equal(t, 17, pos.Ply())
	assert.Equal(t, "4k4/9/9/9/4+p4/9/9/9/4K4 w 2Pb 17", pos.SFEN())
}

func TestParseSFENRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"",
		"hello world",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1 b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL x - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/8/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b K 1",
	} {
		_, err := ParseSFEN(s)
		assert.ErrorIs(t, err, ErrInvalidSFEN, s)
	}
}

func TestStartPositionHasThirtyMoves(t *testing.T) {
	assert.Len(t, Initial().LegalMoves(), 30)
}

func TestApplyDoesNotMutate(t *testing.T) {
	pos := Initial()
	next, err := Rules{}.Apply(pos, Move{From: NewSquare(7, 7), To: NewSquare(7, 6)})
	require.NoError(t, err)
	assert.Equal(t, StartSFEN, pos.SFEN())
	assert.Equal(t, 2, next.Ply())
	assert.Equal(t, Gote, next.SideToMove())
	assert.Equal(t, StartSFEN, next.InitialSFEN())
}

func TestApplyRejects(t *testing.T) {
	cases := []struct {
		name string
		sfen string
		mv   string
		want error
	}{
		{"unreachable", StartSFEN, "7g7e", ErrUnreachable},
		{"empty source", StartSFEN, "5e5d", ErrNoPiece},
		{"opponent piece", StartSFEN, "3c3d", ErrWrongSide},
		{"not in hand", StartSFEN, "P*5e", ErrNotInHand},
		{"double pawn", "4k4/9/9/9/9/9/4P4/9/4K4 b P 1", "P*5e", ErrDoublePawn},
		{"pawn drop mate", "7nk/7s1/8G/9/9/9/9/9/4K4 b P 1", "P*1b", ErrPawnDropMate},
		{"must promote", "k8/4P4/9/9/9/9/9/9/4K4 b - 1", "5b5a", ErrMustPromote},
		{"promotion outside zone", StartSFEN, "7g7f+", ErrBadPromotion},
		{"self check", "4k4/9/9/9/4r4/9/9/4B4/4K4 b - 1", "5h4g", ErrSelfCheck},
		{"dead-end drop", "4k4/9/9/9/9/9/9/9/4K4 b N 1", "N*5b", ErrMustPromote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseSFEN(tc.sfen)
			require.NoError(t, err)
			mv, err := ParseUSIMove(tc.mv)
			require.NoError(t, err)
			_, err = Rules{}.Apply(pos, mv)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestApplyAccepts(t *testing.T) {
	cases := []struct{ sfen, mv string }{
		{"4k4/9/9/9/9/9/4P4/9/4K4 b P 1", "P*4e"},
		{"k8/4P4/9/9/9/9/9/9/4K4 b - 1", "5b5a+"},
		{"7nk/7s1/8G/9/9/9/9/9/4K4 b P 1", "P*2c"},
	}
	for _, tc := range cases {
		pos, err := ParseSFEN(tc.sfen)
		require.NoError(t, err)
		_, err = Rules{}.Apply(pos, usiMoves(t, tc.mv)[0])
		assert.NoError(t, err, tc.mv)
	}
}

func TestCaptureGoesToHandUnpromoted(t *testing.T) {
	pos, err := Replay(StartSFEN, usiMoves(t, "7g7f", "3c3d", "8h2b+", "3a2b"))
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Hand(Sente, Bishop))
	assert.Equal(t, 1, pos.Hand(Gote, Bishop))
	assert.Equal(t, Piece{Kind: Silver, Color: Gote}, pos.PieceAt(NewSquare(2, 2)))
}

func TestStatusCheckmate(t *testing.T) {
	pos, err := ParseSFEN("4k4/4G4/4P4/9/9/9/9/9/4K4 w - 2")
	require.NoError(t, err)
	st := Rules{}.Status(pos)
	assert.Equal(t, SenteWins, st.Outcome)
	assert.Equal(t, ReasonCheckmate, st.Reason)
	assert.True(t, st.Finished())
}

func TestStatusOngoing(t *testing.T) {
	st := Rules{}.Status(Initial())
	assert.False(t, st.Finished())
	assert.Equal(t, "ongoing", st.Outcome.String())
}

func TestStatusRepetitionDraw(t *testing.T) {
	cycle := []string{"5i4h", "5a4b", "4h5i", "4b5a"}
	var list []string
	for i := 0; i < 3; i++ {
		list = append(list, cycle...)
	}

	pos, err := Replay(StartSFEN, usiMoves(t, list[:8]...))
	require.NoError(t, err)
	assert.False(t, Rules{}.Status(pos).Finished(), "third occurrence is not yet a draw")

	pos, err = Replay(StartSFEN, usiMoves(t, list...))
	require.NoError(t, err)
	st := Rules{}.Status(pos)
	assert.Equal(t, Draw, st.Outcome)
	assert.Equal(t, ReasonRepetition, st.Reason)
}

func TestStatusPerpetualCheck(t *testing.T) {
	cycle := []string{"2i1i", "1a2a", "1i2i", "2a1a"}
	var list []string
	for i := 0; i < 3; i++ {
		list = append(list, cycle...)
	}
	pos, err := Replay("8k/9/9/9/9/9/9/9/4K2R1 b - 1", usiMoves(t, list...))
	require.NoError(t, err)
	st := Rules{}.Status(pos)
	assert.Equal(t, GoteWins, st.Outcome)
	assert.Equal(t, ReasonPerpetualCheck, st.Reason)
}
