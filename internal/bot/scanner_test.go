package bot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

func candidateTexts(th *Thread) []string {
	out := make([]string, len(th.Candidates))
	for i, c := range th.Candidates {
		out[i] = c.Text
	}
	return out
}

func TestScanOrdersNewestFirst(t *testing.T) {
	f := newFakeFeed("", reply(1, "t1", 1), reply(3, "t3", 3), reply(2, "t2", 2))
	th, err := ScanThread(context.Background(), f, self, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t2", "t1"}, candidateTexts(th))
	assert.Equal(t, 10, f.gotLimit)
	assert.Equal(t, 500, f.gotHeight)
}

func TestScanKeepsFeedOrderOnTies(t *testing.T) {
	f := newFakeFeed("", reply(1, "a", 5), reply(2, "b", 5), reply(3, "c", 5))
	th, err := ScanThread(context.Background(), f, self, ScanOptions{FeedLimit: 3, ParentHeight: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, candidateTexts(th))
	assert.Equal(t, 3, f.gotLimit)
	assert.Equal(t, 20, f.gotHeight)
}

func TestScanFallsBackToIndexedAt(t *testing.T) {
	old := reply(1, "old", 1)
	noDate := reply(2, "late", 0)
	var rec bsky.PostRecord
	require.NoError(t, json.Unmarshal(noDate.Post.Record, &rec))
	rec.CreatedAt = "not a date"
	noDate.Post.Record = rawRecord(rec)
	noDate.Post.IndexedAt = "2026-01-01T00:30:00Z"

	th, err := ScanThread(context.Background(), newFakeFeed("", old, noDate), self, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"late", "old"}, candidateTexts(th))
}

func TestScanSkipsIneligibleReplies(t *testing.T) {
	own := reply(9, "7g7f", 9)
	own.Post.Author.DID = botDID
	like := reply(8, "", 8)
	like.Post.Record = json.RawMessage(`{"$type":"app.bsky.feed.like"}`)
	broken := reply(7, "", 7)
	broken.Post.Record = json.RawMessage(`{"$type":"app.bsky.feed.post","text":7}`)
	gone := &bsky.ThreadNode{Type: "app.bsky.feed.defs#notFoundPost", URI: "at://gone", NotFound: true}
	blocked := &bsky.ThreadNode{Type: "app.bsky.feed.defs#blockedPost", URI: "at://blocked", Blocked: true}

	f := newFakeFeed("", own, like, broken, gone, blocked, reply(1, "2g2f", 1))
	th, err := ScanThread(context.Background(), f, self, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2g2f"}, candidateTexts(th))
}

func TestScanDecodesStateFromAltText(t *testing.T) {
	want := playUSI(t, "7g7f")
	th, err := ScanThread(context.Background(), newFakeFeed(EncodeState(want)), self, ScanOptions{})
	require.NoError(t, err)
	assert.True(t, want.Equal(th.Position))
	assert.Equal(t, botPost, th.Latest.URI)
	assert.Empty(t, th.Candidates)
}

func TestScanReadsRecordWithMedia(t *testing.T) {
	want := playUSI(t, "7g7f", "3c3d")
	media := bsky.NewImagesEmbed(bsky.Image{Alt: EncodeState(want)})
	quote := bsky.NewQuoteEmbed(bsky.StrongRef{URI: "at://x", CID: "y"})
	raw, err := json.Marshal(quote)
	require.NoError(t, err)
	rec := bsky.PostRecord{Text: "x", CreatedAt: "2026-01-01T00:00:00Z", Embed: &bsky.Embed{
		Type:   bsky.TypeEmbedRecordWithMedia,
		Record: raw,
		Media:  media,
	}}
	latest := postView(botPost, botDID, rawRecord(rec), "")
	f := &fakeFeed{
		feed:   []bsky.FeedViewPost{{Post: *latest}},
		thread: &bsky.ThreadNode{Type: bsky.TypeThreadViewPost, Post: latest},
	}
	th, err := ScanThread(context.Background(), f, self, ScanOptions{})
	require.NoError(t, err)
	assert.True(t, want.Equal(th.Position))
}

func TestScanWithoutImageStartsFresh(t *testing.T) {
	latest := postView(botPost, botDID, rawRecord(bsky.PostRecord{Text: "hello", CreatedAt: "2026-01-01T00:00:00Z"}), "")
	f := &fakeFeed{
		feed:   []bsky.FeedViewPost{{Post: *latest}},
		thread: &bsky.ThreadNode{Type: bsky.TypeThreadViewPost, Post: latest},
	}
	th, err := ScanThread(context.Background(), f, self, ScanOptions{})
	require.NoError(t, err)
	assert.True(t, shogi.Initial().Equal(th.Position))
}

func TestScanSkipsRepostsAndForeignPosts(t *testing.T) {
	latest := botLatest("")
	foreign := postView("at://did:plc:other/app.bsky.feed.post/1", "did:plc:other", rawRecord(bsky.PostRecord{Text: "x"}), "")
	f := &fakeFeed{
		feed: []bsky.FeedViewPost{
			{Post: *foreign, Reason: json.RawMessage(`{"$type":"app.bsky.feed.defs#reasonRepost"}`)},
			{Post: *latest},
		},
		thread: &bsky.ThreadNode{Type: bsky.TypeThreadViewPost, Post: latest},
	}
	th, err := ScanThread(context.Background(), f, self, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, botPost, th.Latest.URI)
}

func TestScanAccountUninitialized(t *testing.T) {
	foreign := postView("at://did:plc:other/app.bsky.feed.post/1", "did:plc:other", rawRecord(bsky.PostRecord{Text: "x"}), "")
	for _, feed := range [][]bsky.FeedViewPost{
		nil,
		{{Post: *foreign, Reason: json.RawMessage(`{"$type":"app.bsky.feed.defs#reasonRepost"}`)}},
	} {
		_, err := ScanThread(context.Background(), &fakeFeed{feed: feed}, self, ScanOptions{})
		assert.ErrorIs(t, err, ErrAccountUninitialized)
	}
}

func TestScanUnreadableThread(t *testing.T) {
	f := newFakeFeed("")
	f.thread = &bsky.ThreadNode{Type: "app.bsky.feed.defs#notFoundPost", URI: botPost, NotFound: true}
	_, err := ScanThread(context.Background(), f, self, ScanOptions{})
	assert.ErrorIs(t, err, ErrUnreadableThread)

	f = newFakeFeed("")
	f.thread.Post.Record = json.RawMessage(`{"$type":"app.bsky.feed.repost"}`)
	_, err = ScanThread(context.Background(), f, self, ScanOptions{})
	assert.ErrorIs(t, err, ErrUnreadableThread)
}

func TestScanPropagatesFeedErrors(t *testing.T) {
	boom := errors.New("network down")
	f := newFakeFeed("")
	f.threadErr = boom
	_, err := ScanThread(context.Background(), f, self, ScanOptions{})
	assert.ErrorIs(t, err, boom)
}
