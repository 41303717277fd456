package bot

import "github.com/park285/bsky-shogi-thread/internal/shogi"

// Classify reports whether the game at pos is over.
func Classify(rules Rules, pos *shogi.Position) shogi.Status {
	return rules.Status(pos)
}
