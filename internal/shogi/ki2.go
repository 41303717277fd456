package shogi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidKI2   = errors.New("invalid ki2 move")
	ErrAmbiguousKI2 = errors.New("ambiguous ki2 move")
)

var (
	fullWidthDigits = []rune("１２３４５６７８９")
	kanjiRanks      = []rune("一二三四五六七八九")
)

var kindNames = map[Kind]string{
	Pawn: "歩", Lance: "香", Knight: "桂", Silver: "銀", Gold: "金", Bishop: "角", Rook: "飛", King: "玉",
	ProPawn: "と", ProLance: "成香", ProKnight: "成桂", ProSilver: "成銀", Horse: "馬", Dragon: "龍",
}

// Two-rune names first so that 成香 is not read as a promotion suffix.
var kindAliases = []struct {
	name string
	kind Kind
}{
	{"成香", ProLance}, {"成桂", ProKnight}, {"成銀", ProSilver},
	{"歩", Pawn}, {"香", Lance}, {"桂", Knight}, {"銀", Silver}, {"金", Gold},
	{"角", Bishop}, {"飛", Rook}, {"玉", King}, {"王", King},
	{"と", ProPawn}, {"杏", ProLance}, {"圭", ProKnight}, {"全", ProSilver},
	{"馬", Horse}, {"龍", Dragon}, {"竜", Dragon},
}

var sideMarks = []struct {
	mark  string
	color Color
}{
	{"▲", Sente}, {"☗", Sente}, {"△", Gote}, {"☖", Gote},
}

func sideMark(c Color) string {
	if c == Gote {
		return "△"
	}
	return "▲"
}

func ki2Square(sq Square) string {
	return string(fullWidthDigits[sq.File()-1]) + string(kanjiRanks[sq.Rank()-1])
}

func digitValue(r rune) (int, bool) {
	switch {
	case r >= '1' && r <= '9':
		return int(r - '0'), true
	case r >= '１' && r <= '９':
		return int(r-'１') + 1, true
	}
	return 0, false
}

func rankValue(r rune) (int, bool) {
	for i, k := range kanjiRanks {
		if k == r {
			return i + 1, true
		}
	}
	return digitValue(r)
}

// FormatKI2 renders mv, played from pos, in KI2 notation such as "▲７六歩",
// "△同銀" or "▲５八金右".
func FormatKI2(pos *Position, mv Move) (string, error) {
	kind := mv.Drop
	if !mv.IsDrop() {
		kind = pos.PieceAt(mv.From).Kind
	}
	if kind == NoKind {
		return "", fmt.Errorf("%s: %w", mv, ErrNoPiece)
	}
	legal := pos.LegalMoves()
	if !containsMove(legal, mv) {
		return "", fmt.Errorf("%s: %w", mv, ErrUnreachable)
	}

	var b strings.Builder
	b.WriteString(sideMark(pos.side))
	if last, ok := pos.LastMove(); ok && last.To == mv.To {
		b.WriteString("同")
	} else {
		b.WriteString(ki2Square(mv.To))
	}
	b.WriteString(kindNames[kind])

	sources := boardSources(pos, legal, kind, mv.To)
	if mv.IsDrop() {
		if len(sources) > 0 {
			b.WriteString("打")
		}
		return b.String(), nil
	}
	if len(sources) > 1 {
		b.WriteString(relativeSuffix(sources, mv.From, mv.To, pos.side))
	}
	if kind.CanPromote() {
		if mv.Promote {
			b.WriteString("成")
		} else if containsMove(legal, Move{From: mv.From, To: mv.To, Promote: true}) {
			b.WriteString("不成")
		}
	}
	return b.String(), nil
}

func containsMove(moves []Move, mv Move) bool {
	for _, m := range moves {
		if m == mv {
			return true
		}
	}
	return false
}

// boardSources lists the squares holding a piece of kind that can legally
// move to to.
func boardSources(pos *Position, legal []Move, kind Kind, to Square) []Square {
	var out []Square
	for _, mv := range legal {
		if mv.IsDrop() || mv.To != to || pos.board[mv.From].Kind != kind {
			continue
		}
		dup := false
		for _, s := range out {
			if s == mv.From {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, mv.From)
		}
	}
	return out
}

func forwardness(from, to Square, c Color) int {
	d := from.Rank() - to.Rank()
	if c == Gote {
		return -d
	}
	return d
}

// leftness grows towards the mover's left hand: file 9 for sente, file 1 for gote.
func leftness(sq Square, c Color) int {
	if c == Gote {
		return 10 - sq.File()
	}
	return sq.File()
}

func direction(from, to Square, c Color) rune {
	switch f := forwardness(from, to, c); {
	case f > 0:
		return '上'
	case f < 0:
		return '引'
	}
	return '寄'
}

func satisfies(r rune, from, to Square, c Color, sources []Square) bool {
	switch r {
	case '上', '引', '寄':
		return direction(from, to, c) == r
	case '直':
		return from.File() == to.File() && forwardness(from, to, c) == 1
	case '左', '右':
		l := leftness(from, c)
		for _, s := range sources {
			if r == '左' && leftness(s, c) > l {
				return false
			}
			if r == '右' && leftness(s, c) < l {
				return false
			}
		}
		return true
	}
	return false
}

func satisfiesAll(rs []rune, from, to Square, c Color, sources []Square) bool {
	for _, r := range rs {
		if !satisfies(r, from, to, c, sources) {
			return false
		}
	}
	return true
}

func relativeSuffix(sources []Square, from, to Square, c Color) string {
	dir := direction(from, to, c)
	options := [][]rune{{dir}, {'直'}, {'左'}, {'右'}, {'左', dir}, {'右', dir}}
	for _, opt := range options {
		if !satisfiesAll(opt, from, to, c, sources) {
			continue
		}
		n := 0
		for _, s := range sources {
			if satisfiesAll(opt, s, to, c, sources) {
				n++
			}
		}
		if n == 1 {
			return string(opt)
		}
	}
	return fmt.Sprintf("(%d%d)", from.File(), from.Rank())
}

// ParseKI2Move resolves a single KI2 token against pos.
func ParseKI2Move(pos *Position, token string) (Move, error) {
	s := strings.TrimSpace(token)
	for _, m := range sideMarks {
		if strings.HasPrefix(s, m.mark) {
			if m.color != pos.side {
				return Move{}, fmt.Errorf("%w: %q is not %s to move", ErrInvalidKI2, token, m.color)
			}
			s = strings.TrimPrefix(s, m.mark)
			break
		}
	}
	rs := []rune(s)

	var to Square
	switch {
	case len(rs) > 0 && rs[0] == '同':
		last, ok := pos.LastMove()
		if !ok {
			return Move{}, fmt.Errorf("%w: %q without a previous move", ErrInvalidKI2, token)
		}
		to = last.To
		rs = rs[1:]
		for len(rs) > 0 && (rs[0] == ' ' || rs[0] == '　') {
			rs = rs[1:]
		}
	case len(rs) >= 2:
		file, ok1 := digitValue(rs[0])
		rank, ok2 := rankValue(rs[1])
		if !ok1 || !ok2 {
			return Move{}, fmt.Errorf("%w: bad destination in %q", ErrInvalidKI2, token)
		}
		to = NewSquare(file, rank)
		rs = rs[2:]
	default:
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidKI2, token)
	}

	kind := NoKind
	for _, a := range kindAliases {
		if strings.HasPrefix(string(rs), a.name) {
			kind = a.kind
			rs = rs[len([]rune(a.name)):]
			break
		}
	}
	if kind == NoKind {
		return Move{}, fmt.Errorf("%w: unknown piece in %q", ErrInvalidKI2, token)
	}

	var (
		filters            []rune
		promote, noPromote bool
		drop               bool
		from               = NoSquare
	)
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '打':
			drop = true
		case '成':
			promote = true
		case '不':
			if i+1 >= len(rs) || rs[i+1] != '成' {
				return Move{}, fmt.Errorf("%w: %q", ErrInvalidKI2, token)
			}
			noPromote = true
			i++
		case '左', '右', '直', '上', '引', '寄':
			filters = append(filters, r)
		case '(', '（':
			if i+3 >= len(rs) || (rs[i+3] != ')' && rs[i+3] != '）') {
				return Move{}, fmt.Errorf("%w: bad source in %q", ErrInvalidKI2, token)
			}
			file, ok1 := digitValue(rs[i+1])
			rank, ok2 := digitValue(rs[i+2])
			if !ok1 || !ok2 {
				return Move{}, fmt.Errorf("%w: bad source in %q", ErrInvalidKI2, token)
			}
			from = NewSquare(file, rank)
			i += 3
		default:
			return Move{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidKI2, r, token)
		}
	}
	if promote && noPromote {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidKI2, token)
	}

	legal := pos.LegalMoves()
	if !drop {
		var cands []Move
		for _, mv := range legal {
			if mv.IsDrop() || mv.To != to || pos.board[mv.From].Kind != kind {
				continue
			}
			if from != NoSquare && mv.From != from {
				continue
			}
			cands = append(cands, mv)
		}
		if len(cands) > 0 {
			sources := boardSources(pos, legal, kind, to)
			var kept []Move
			for _, mv := range cands {
				if satisfiesAll(filters, mv.From, to, pos.side, sources) {
					kept = append(kept, mv)
				}
			}
			kept = pickPromotion(kept, kind, promote, noPromote)
			switch len(kept) {
			case 1:
				return kept[0], nil
			case 0:
				return Move{}, fmt.Errorf("%w: no %q move matches", ErrInvalidKI2, token)
			default:
				return Move{}, fmt.Errorf("%w: %q", ErrAmbiguousKI2, token)
			}
		}
		if len(filters) > 0 || promote || noPromote || from != NoSquare {
			return Move{}, fmt.Errorf("%w: no %q move matches", ErrInvalidKI2, token)
		}
	}
	mv := Move{From: NoSquare, To: to, Drop: kind}
	if !containsMove(legal, mv) {
		return Move{}, fmt.Errorf("%w: no %q move matches", ErrInvalidKI2, token)
	}
	return mv, nil
}

func pickPromotion(moves []Move, kind Kind, promote, noPromote bool) []Move {
	var yes, no []Move
	for _, mv := range moves {
		if mv.Promote {
			yes = append(yes, mv)
		} else {
			no = append(no, mv)
		}
	}
	switch {
	case promote:
		return yes
	case noPromote:
		return no
	case len(no) > 0 || !kind.CanPromote():
		return no
	}
	return yes
}

// SplitKI2 splits text into move tokens, joining "同　歩" written with a
// space back into one token.
func SplitKI2(text string) []string {
	fields := strings.Fields(text)
	var out []string
	for i := 0; i < len(fields); i++ {
		tok := fields[i]
		bare := tok
		for _, m := range sideMarks {
			bare = strings.TrimPrefix(bare, m.mark)
		}
		if bare == "同" && i+1 < len(fields) {
			tok += fields[i+1]
			i++
		}
		out = append(out, tok)
	}
	return out
}

// ParseKI2 replays a whitespace separated KI2 game from the initial SFEN.
func ParseKI2(initial, text string) (*Position, error) {
	pos, err := ParseSFEN(initial)
	if err != nil {
		return nil, err
	}
	for i, tok := range SplitKI2(text) {
		mv, err := ParseKI2Move(pos, tok)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		pos = pos.do(mv)
	}
	return pos, nil
}

// KI2Transcript renders every move of pos, from its initial position, as KI2.
func KI2Transcript(pos *Position) (string, error) {
	cur, err := ParseSFEN(pos.initial)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(pos.moves))
	for i, mv := range pos.moves {
		s, err := FormatKI2(cur, mv)
		if err != nil {
			return "", fmt.Errorf("move %d: %w", i+1, err)
		}
		parts = append(parts, s)
		cur = cur.do(mv)
	}
	return strings.Join(parts, " "), nil
}
