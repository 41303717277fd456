package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// Template keys.
const (
	msgMoveReply   = "move.reply"
	msgGameStart   = "game.start"
	msgSummaryBase = "summary."
)

// MessageKeys lists every template key the composer renders.
func MessageKeys() []string {
	return []string{
		msgMoveReply,
		msgGameStart,
		msgSummaryBase + shogi.SenteWins.String(),
		msgSummaryBase + shogi.GoteWins.String(),
		msgSummaryBase + shogi.Draw.String(),
	}
}

// Composer builds outgoing post records. It uploads board images but never
// publishes posts itself.
type Composer struct {
	feed     Feed
	renderer Renderer
	texts    Texts
	langs    []string
	now      func() time.Time
}

func NewComposer(feed Feed, renderer Renderer, texts Texts, langs []string, now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{feed: feed, renderer: renderer, texts: texts, langs: langs, now: now}
}

// ThreadRef links a reply to prior: the parent is prior itself, the root is
// prior's own root when prior is a reply, prior otherwise.
func ThreadRef(prior *bsky.PostView, rec *bsky.PostRecord) *bsky.ReplyRef {
	parent := prior.Ref()
	root := parent
	if rec != nil && rec.Reply != nil && !rec.Reply.Root.IsZero() {
		root = rec.Reply.Root
	}
	return &bsky.ReplyRef{Root: root, Parent: parent}
}

// ComposeMoveReply answers the candidate post with the new board. The state
// of the game is stored in the image alt-text.
func (c *Composer) ComposeMoveReply(ctx context.Context, prior *bsky.PostView, priorRec *bsky.PostRecord, rm *ResolvedMove) (*bsky.PostRecord, error) {
	embed, err := c.boardEmbed(ctx, rm.Position)
	if err != nil {
		return nil, err
	}
	text, err := c.texts.Render(msgMoveReply, map[string]any{
		"Number":   rm.Position.Ply() - 1,
		"Notation": rm.Notation,
		"USI":      rm.Move.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", msgMoveReply, err)
	}
	rec := c.record(text)
	rec.Embed = embed
	rec.Reply = ThreadRef(prior, priorRec)
	return rec, nil
}

// ComposeTerminationSummary quotes the final move post with the result.
func (c *Composer) ComposeTerminationSummary(movePost bsky.StrongRef, final *shogi.Position, status shogi.Status) (*bsky.PostRecord, error) {
	key := msgSummaryBase + status.Outcome.String()
	text, err := c.texts.Render(key, map[string]any{
		"Moves":  final.Ply() - 1,
		"Reason": string(status.Reason),
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", key, err)
	}
	rec := c.record(text)
	rec.Embed = bsky.NewQuoteEmbed(movePost)
	return rec, nil
}

// ComposeGameStart opens a new game from the initial position.
func (c *Composer) ComposeGameStart(ctx context.Context) (*bsky.PostRecord, error) {
	embed, err := c.boardEmbed(ctx, shogi.Initial())
	if err != nil {
		return nil, err
	}
	text, err := c.texts.Render(msgGameStart, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", msgGameStart, err)
	}
	rec := c.record(text)
	rec.Embed = embed
	return rec, nil
}

func (c *Composer) record(text string) *bsky.PostRecord {
	rec := &bsky.PostRecord{
		Type:      bsky.TypePost,
		Text:      text,
		CreatedAt: c.now().UTC().Format(time.RFC3339Nano),
	}
	if len(c.langs) > 0 {
		rec.Langs = append([]string(nil), c.langs...)
	}
	return rec
}

func (c *Composer) boardEmbed(ctx context.Context, pos *shogi.Position) (*bsky.Embed, error) {
	png, w, h, err := c.renderer.Render(ctx, pos)
	if err != nil {
		return nil, fmt.Errorf("render board: %w", err)
	}
	blob, err := c.feed.UploadBlob(ctx, png, "image/png")
	if err != nil {
		return nil, fmt.Errorf("upload board: %w", err)
	}
	img := bsky.Image{Image: *blob, Alt: EncodeState(pos)}
	if w > 0 && h > 0 {
		img.AspectRatio = &bsky.AspectRatio{Width: w, Height: h}
	}
	return bsky.NewImagesEmbed(img), nil
}
