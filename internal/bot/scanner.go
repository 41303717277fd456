package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/obslog"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

type ScanOptions struct {
	// FeedLimit bounds the author feed page searched for the latest own post.
	FeedLimit int
	// ParentHeight bounds the ancestor lookup of the thread fetch.
	ParentHeight int
}

func (o ScanOptions) withDefaults() ScanOptions {
	if o.FeedLimit <= 0 {
		o.FeedLimit = 10
	}
	if o.ParentHeight <= 0 {
		o.ParentHeight = 500
	}
	return o
}

// Candidate is a reply considered as the next move.
type Candidate struct {
	Post   *bsky.PostView
	Record *bsky.PostRecord
	Text   string
}

// Thread is the bot's latest post, the position stored on it and its replies
// ordered newest first.
type Thread struct {
	Latest     *bsky.PostView
	Record     *bsky.PostRecord
	State      string
	Position   *shogi.Position
	Candidates []Candidate
}

// ScanThread finds the bot's latest post and collects its direct replies.
func ScanThread(ctx context.Context, feed Feed, self Identity, opts ScanOptions) (*Thread, error) {
	opts = opts.withDefaults()
	log := obslog.L()

	items, err := feed.GetAuthorFeed(ctx, self.DID, opts.FeedLimit)
	if err != nil {
		return nil, fmt.Errorf("author feed: %w", err)
	}
	var latest *bsky.PostView
	for i := range items {
		it := &items[i]
		if it.IsRepost() || it.Post.Author.DID != self.DID {
			continue
		}
		latest = &it.Post
		break
	}
	if latest == nil {
		return nil, fmt.Errorf("%s: %w", self.DID, ErrAccountUninitialized)
	}

	node, err := feed.GetPostThread(ctx, latest.URI, 1, opts.ParentHeight)
	if err != nil {
		return nil, fmt.Errorf("post thread %s: %w", latest.URI, err)
	}
	if !node.IsPost() {
		return nil, fmt.Errorf("%s: %w", latest.URI, ErrUnreadableThread)
	}
	known, ok := node.Post.Decode().(bsky.KnownPost)
	if !ok {
		return nil, fmt.Errorf("%s: record is not a post: %w", latest.URI, ErrUnreadableThread)
	}

	th := &Thread{Latest: node.Post, Record: known.Post}
	if imgs := known.Post.Embed.AllImages(); len(imgs) > 0 {
		th.State = imgs[0].Alt
	}
	th.Position = DecodeState(th.State)

	type dated struct {
		c  Candidate
		at time.Time
	}
	var replies []dated
	for _, r := range node.Replies {
		if !r.IsPost() {
			log.Debug("reply_skipped", zap.String("reason", "not_a_post"), zap.String("uri", r.URI))
			continue
		}
		if r.Post.Author.DID == self.DID {
			log.Debug("reply_skipped", zap.String("reason", "own_post"), zap.String("uri", r.Post.URI))
			continue
		}
		switch rec := r.Post.Decode().(type) {
		case bsky.KnownPost:
			replies = append(replies, dated{
				c:  Candidate{Post: r.Post, Record: rec.Post, Text: rec.Post.Text},
				at: postTime(rec.Post.CreatedAt, r.Post.IndexedAt),
			})
		case bsky.OtherRecord:
			log.Debug("reply_skipped", zap.String("reason", "other_record"), zap.String("type", rec.Type), zap.String("uri", r.Post.URI))
		case bsky.UnknownRecord:
			log.Debug("reply_skipped", zap.String("reason", "unknown_record"), zap.String("uri", r.Post.URI), zap.Error(rec.Err))
		}
	}
	sort.SliceStable(replies, func(i, j int) bool { return replies[i].at.After(replies[j].at) })
	th.Candidates = make([]Candidate, len(replies))
	for i, r := range replies {
		th.Candidates[i] = r.c
	}

	log.Info("thread_scanned",
		zap.String("uri", th.Latest.URI),
		zap.Int("ply", th.Position.Ply()),
		zap.Int("candidates", len(th.Candidates)),
	)
	return th, nil
}

func postTime(createdAt, indexedAt string) time.Time {
	for _, s := range []string{createdAt, indexedAt} {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
