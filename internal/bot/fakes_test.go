package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

const (
	botDID  = "did:plc:shogibot"
	botPost = "at://did:plc:shogibot/app.bsky.feed.post/latest"
)

var self = Identity{DID: botDID, Handle: "shogi.test"}

type fakeFeed struct {
	feed      []bsky.FeedViewPost
	thread    *bsky.ThreadNode
	feedErr   error
	threadErr error
	uploads   int
	posts     []*bsky.PostRecord
	gotLimit  int
	gotHeight int
}

func (f *fakeFeed) GetAuthorFeed(_ context.Context, actor string, limit int) ([]bsky.FeedViewPost, error) {
	f.gotLimit = limit
	if actor != botDID {
		return nil, fmt.Errorf("unexpected actor %s", actor)
	}
	return f.feed, f.feedErr
}

func (f *fakeFeed) GetPostThread(_ context.Context, uri string, depth, parentHeight int) (*bsky.ThreadNode, error) {
	f.gotHeight = parentHeight
	if depth != 1 {
		return nil, fmt.Errorf("unexpected depth %d", depth)
	}
	return f.thread, f.threadErr
}

func (f *fakeFeed) UploadBlob(_ context.Context, data []byte, mimeType string) (*bsky.Blob, error) {
	f.uploads++
	return &bsky.Blob{Type: bsky.TypeBlob, Ref: bsky.BlobLink{Link: fmt.Sprintf("blob-%d", f.uploads)}, MimeType: mimeType, Size: int64(len(data))}, nil
}

func (f *fakeFeed) CreatePost(_ context.Context, rec *bsky.PostRecord) (bsky.StrongRef, error) {
	f.posts = append(f.posts, rec)
	n := len(f.posts)
	return bsky.StrongRef{URI: fmt.Sprintf("at://did:plc:shogibot/app.bsky.feed.post/new%d", n), CID: fmt.Sprintf("new%d", n)}, nil
}

type fakeRenderer struct{ err error }

func (r fakeRenderer) Render(context.Context, *shogi.Position) ([]byte, int, int, error) {
	if r.err != nil {
		return nil, 0, 0, r.err
	}
	return []byte("png"), 640, 700, nil
}

type fakeTexts struct{}

func (fakeTexts) Render(key string, data any) (string, error) {
	return fmt.Sprintf("%s %v", key, data), nil
}

var errRender = errors.New("renderer down")

func rawRecord(rec bsky.PostRecord) json.RawMessage {
	if rec.Type == "" {
		rec.Type = bsky.TypePost
	}
	raw, _ := json.Marshal(rec)
	return raw
}

func postView(uri, did string, raw json.RawMessage, indexedAt string) *bsky.PostView {
	return &bsky.PostView{
		URI:       uri,
		CID:       "cid-" + uri,
		Author:    bsky.ProfileViewBasic{DID: did, Handle: did},
		Record:    raw,
		IndexedAt: indexedAt,
	}
}

// botLatest is the bot's current game post carrying state in its alt-text.
func botLatest(state string) *bsky.PostView {
	rec := bsky.PostRecord{
		Text:      "1手目",
		CreatedAt: "2026-01-01T00:00:00Z",
		Embed:     bsky.NewImagesEmbed(bsky.Image{Alt: state}),
		Reply: &bsky.ReplyRef{
			Root:   bsky.StrongRef{URI: "at://did:plc:shogibot/app.bsky.feed.post/root", CID: "root"},
			Parent: bsky.StrongRef{URI: "at://did:plc:player/app.bsky.feed.post/prev", CID: "prev"},
		},
	}
	return postView(botPost, botDID, rawRecord(rec), "2026-01-01T00:00:01Z")
}

// reply builds a player reply to the bot's latest post created at minute m.
func reply(n int, text string, m int) *bsky.ThreadNode {
	uri := fmt.Sprintf("at://did:plc:player%d/app.bsky.feed.post/r%d", n, n)
	rec := bsky.PostRecord{
		Text:      text,
		CreatedAt: fmt.Sprintf("2026-01-01T00:%02d:00Z", m),
		Reply: &bsky.ReplyRef{
			Root:   bsky.StrongRef{URI: "at://did:plc:shogibot/app.bsky.feed.post/root", CID: "root"},
			Parent: bsky.StrongRef{URI: botPost, CID: "cid-" + botPost},
		},
	}
	return &bsky.ThreadNode{Type: bsky.TypeThreadViewPost, Post: postView(uri, fmt.Sprintf("did:plc:player%d", n), rawRecord(rec), "")}
}

func newFakeFeed(state string, replies ...*bsky.ThreadNode) *fakeFeed {
	latest := botLatest(state)
	return &fakeFeed{
		feed:   []bsky.FeedViewPost{{Post: *latest}},
		thread: &bsky.ThreadNode{Type: bsky.TypeThreadViewPost, Post: latest, Replies: replies},
	}
}

func newTestBot(f *fakeFeed, r Renderer) *Bot {
	return New(Config{
		Feed:     f,
		Rules:    shogi.Rules{},
		Notation: shogi.Notation{},
		Renderer: r,
		Texts:    fakeTexts{},
		Self:     self,
		Langs:    []string{"ja"},
		Now:      func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}
