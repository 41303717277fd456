package bot

import (
	"strings"

	"go.uber.org/zap"

	"github.com/park285/bsky-shogi-thread/internal/obslog"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// EncodeState renders pos as "sfen <initial> moves <usi>...", the form
// written to image alt-text.
func EncodeState(pos *shogi.Position) string {
	return shogi.USIPosition(pos)
}

type stateDecoder struct {
	name   string
	decode func(string) (*shogi.Position, error)
}

// Accepted state shapes, most preferred first.
var stateDecoders = []stateDecoder{
	{"usi", shogi.ParseUSIPosition},
	{"sfen", shogi.ParseSFEN},
}

// DecodeState reads a position from alt-text. Unreadable input yields the
// initial position; it never fails.
func DecodeState(s string) *shogi.Position {
	s = strings.TrimSpace(s)
	if s == "" {
		return shogi.Initial()
	}
	for _, d := range stateDecoders {
		pos, err := d.decode(s)
		if err == nil {
			return pos
		}
		obslog.L().Debug("state_decode_miss", zap.String("shape", d.name), zap.Error(err))
	}
	obslog.L().Info("state_decode_fallback", zap.String("state", truncate(s, 120)))
	return shogi.Initial()
}

// DescribeState summarizes pos for operators.
func DescribeState(pos *shogi.Position) string {
	return pos.SFEN()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
