package bot

import (
	"context"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// Feed is the social feed the game is played on.
type Feed interface {
	GetAuthorFeed(ctx context.Context, actor string, limit int) ([]bsky.FeedViewPost, error)
	GetPostThread(ctx context.Context, uri string, depth, parentHeight int) (*bsky.ThreadNode, error)
	UploadBlob(ctx context.Context, data []byte, mimeType string) (*bsky.Blob, error)
	CreatePost(ctx context.Context, rec *bsky.PostRecord) (bsky.StrongRef, error)
}

// Rules validates and applies moves and classifies positions.
type Rules interface {
	Apply(pos *shogi.Position, mv shogi.Move) (*shogi.Position, error)
	Status(pos *shogi.Position) shogi.Status
}

// Notation parses and renders moves.
type Notation interface {
	ParseStandalone(text string) (shogi.Move, error)
	ParseTranscript(initial, text string) (*shogi.Position, error)
	Transcript(pos *shogi.Position) (string, error)
	Humanize(pos *shogi.Position, mv shogi.Move) (string, bool)
}

// Renderer draws a board diagram as PNG.
type Renderer interface {
	Render(ctx context.Context, pos *shogi.Position) (png []byte, width, height int, err error)
}

// Texts renders the visible post bodies by template key.
type Texts interface {
	Render(key string, data any) (string, error)
}

// Identity is the bot's own account. It is passed explicitly so that the
// scanner can exclude the bot's posts without reading session state.
type Identity struct {
	DID    string
	Handle string
}
