package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// scanOrder builds replies whose newest-first order is texts.
func scanOrder(texts ...string) []*bsky.ThreadNode {
	out := make([]*bsky.ThreadNode, len(texts))
	for i, s := range texts {
		out[i] = reply(i+1, s, 50-i)
	}
	return out
}

func TestRunFirstLegalCandidateWins(t *testing.T) {
	f := newFakeFeed("", scanOrder("7g7f", "bad", "2g2f")...)
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateResolved, res.State)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Move)
	assert.Equal(t, "7g7f", res.Move.Move.String())
	assert.Empty(t, res.Rejected, "later candidates must not be examined")
	require.Len(t, f.posts, 1)
	assert.Len(t, res.Published, 1)

	post := f.posts[0]
	assert.Contains(t, post.Text, "move.reply")
	assert.Contains(t, post.Text, "Number:1")
	assert.Contains(t, post.Text, "▲７六歩")
	assert.Equal(t, []string{"ja"}, post.Langs)
	assert.Equal(t, "2026-01-02T03:04:05Z", post.CreatedAt)

	imgs := post.Embed.AllImages()
	require.Len(t, imgs, 1)
	assert.Equal(t, "sfen "+shogi.StartSFEN+" moves 7g7f", imgs[0].Alt)
	assert.Equal(t, &bsky.AspectRatio{Width: 640, Height: 700}, imgs[0].AspectRatio)
	assert.Equal(t, "blob-1", imgs[0].Image.Ref.Link)
	assert.True(t, res.Move.Position.Equal(DecodeState(imgs[0].Alt)))
}

func TestRunPrefersNewestReply(t *testing.T) {
	older := reply(1, "7g7f", 1)
	newer := reply(2, "2g2f", 2)
	f := newFakeFeed("", older, newer)
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2g2f", res.Move.Move.String())
	assert.Equal(t, newer.Post.URI, res.Move.Candidate.Post.URI)
}

func TestRunSkipsFailingCandidates(t *testing.T) {
	f := newFakeFeed("", scanOrder("hello", "7g7e", "58金", "2g2f", "7g7f")...)
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2g2f", res.Move.Move.String())
	require.Len(t, res.Rejected, 3)

	var pe *MoveParseError
	var ie *IllegalMoveError
	assert.True(t, errors.As(res.Rejected[0], &pe))
	assert.True(t, errors.As(res.Rejected[1], &ie))
	assert.True(t, errors.As(res.Rejected[2], &pe))
	assert.Len(t, f.posts, 1)
}

func TestRunExhaustedPublishesNothing(t *testing.T) {
	f := newFakeFeed("", scanOrder("bad", "7g7e")...)
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Nil(t, res.Move)
	assert.Len(t, res.Rejected, 2)
	assert.Empty(t, f.posts)
	assert.Zero(t, f.uploads)
}

func TestRunWithoutRepliesIsExhausted(t *testing.T) {
	f := newFakeFeed("")
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Empty(t, f.posts)
}

func TestRunThreadingInheritsRoot(t *testing.T) {
	cand := reply(1, "7g7f", 1)
	f := newFakeFeed("", cand)
	_, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, f.posts, 1)

	ref := f.posts[0].Reply
	require.NotNil(t, ref)
	assert.Equal(t, cand.Post.URI, ref.Parent.URI)
	assert.Equal(t, cand.Post.CID, ref.Parent.CID)
	assert.Equal(t, "at://did:plc:shogibot/app.bsky.feed.post/root", ref.Root.URI)
	assert.NotEqual(t, ref.Parent.URI, ref.Root.URI)
}

func TestThreadRefWithoutRoot(t *testing.T) {
	prior := postView("at://p", "did:plc:x", rawRecord(bsky.PostRecord{Text: "x"}), "")
	ref := ThreadRef(prior, &bsky.PostRecord{Text: "x"})
	assert.Equal(t, prior.Ref(), ref.Root)
	assert.Equal(t, prior.Ref(), ref.Parent)

	ref = ThreadRef(prior, nil)
	assert.Equal(t, prior.Ref(), ref.Root)
}

func TestRunContinuesFromDecodedState(t *testing.T) {
	pos := playUSI(t, "7g7f", "3c3d", "8h2b+")
	f := newFakeFeed(EncodeState(pos), scanOrder("同銀")...)
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3a2b", res.Move.Move.String())
	assert.Contains(t, f.posts[0].Text, "Number:4")
	assert.Contains(t, f.posts[0].Text, "△同銀")
	assert.Equal(t, "sfen "+shogi.StartSFEN+" moves 7g7f 3c3d 8h2b+ 3a2b", f.posts[0].Embed.AllImages()[0].Alt)
}

func TestRunTerminalPublishesSummaryAndNewGame(t *testing.T) {
	f := newFakeFeed("sfen 4k4/9/4P4/9/9/9/9/9/4K4 b G 1", scanOrder("G*5b")...)
	res, err := newTestBot(f, fakeRenderer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateTerminal, res.State)
	assert.Equal(t, shogi.SenteWins, res.Status.Outcome)
	assert.Equal(t, shogi.ReasonCheckmate, res.Status.Reason)
	require.Len(t, f.posts, 3)
	require.Len(t, res.Published, 3)

	move, summary, start := f.posts[0], f.posts[1], f.posts[2]
	assert.True(t, strings.HasPrefix(move.Text, "move.reply"))

	assert.True(t, strings.HasPrefix(summary.Text, "summary.sente_wins"))
	assert.Contains(t, summary.Text, "Moves:1")
	assert.Nil(t, summary.Reply, "summary is a quote post, not a reply")
	quoted, ok := summary.Embed.Quoted()
	require.True(t, ok)
	assert.Equal(t, res.Published[0], quoted)

	assert.True(t, strings.HasPrefix(start.Text, "game.start"))
	assert.Nil(t, start.Reply)
	imgs := start.Embed.AllImages()
	require.Len(t, imgs, 1)
	assert.True(t, shogi.Initial().Equal(DecodeState(imgs[0].Alt)))
}

func TestRunFatalErrors(t *testing.T) {
	_, err := newTestBot(&fakeFeed{}, fakeRenderer{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrAccountUninitialized)

	f := newFakeFeed("", scanOrder("7g7f")...)
	f.thread = &bsky.ThreadNode{Type: "app.bsky.feed.defs#blockedPost", URI: botPost, Blocked: true}
	_, err = newTestBot(f, fakeRenderer{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnreadableThread)
	assert.Empty(t, f.posts)
}

func TestRunRenderFailurePublishesNothing(t *testing.T) {
	f := newFakeFeed("", scanOrder("7g7f")...)
	res, err := newTestBot(f, fakeRenderer{err: errRender}).Run(context.Background())
	assert.ErrorIs(t, err, errRender)
	assert.Equal(t, StateResolved, res.State)
	assert.Empty(t, f.posts)
}

func TestStartGame(t *testing.T) {
	f := &fakeFeed{}
	ref, err := newTestBot(f, fakeRenderer{}).StartGame(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ref.URI)
	require.Len(t, f.posts, 1)
	assert.Nil(t, f.posts[0].Reply)
	assert.Equal(t, EncodeState(shogi.Initial()), f.posts[0].Embed.AllImages()[0].Alt)
}

func TestPreviewPublishesNothing(t *testing.T) {
	f := newFakeFeed("sfen 4k4/9/4P4/9/9/9/9/9/4K4 b G 1", scanOrder("bad", "G*5b")...)
	res, err := newTestBot(f, fakeRenderer{}).Preview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, "G*5b", res.Move.Move.String())
	assert.Equal(t, shogi.SenteWins, res.Status.Outcome)
	assert.Len(t, res.Rejected, 1)
	assert.Empty(t, f.posts)
	assert.Zero(t, f.uploads)
}

func TestPreviewExhausted(t *testing.T) {
	f := newFakeFeed("", scanOrder("bad")...)
	res, err := newTestBot(f, fakeRenderer{}).Preview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.False(t, res.Status.Finished())
}
