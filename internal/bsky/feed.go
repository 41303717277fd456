package bsky

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

// GetAuthorFeed lists the newest posts and replies of actor.
func (c *Client) GetAuthorFeed(ctx context.Context, actor string, limit int) ([]FeedViewPost, error) {
	var out struct {
		Feed []FeedViewPost `json:"feed"`
	}
	q := [][2]string{{"actor", actor}, {"limit", itoa(limit)}, {"filter", "posts_with_replies"}}
	if err := c.getJSON(ctx, "app.bsky.feed.getAuthorFeed", q, &out); err != nil {
		return nil, err
	}
	return out.Feed, nil
}

// GetPostThread fetches the thread around uri.
func (c *Client) GetPostThread(ctx context.Context, uri string, depth, parentHeight int) (*ThreadNode, error) {
	var out struct {
		Thread *ThreadNode `json:"thread"`
	}
	q := [][2]string{{"uri", uri}, {"depth", itoa(depth)}, {"parentHeight", itoa(parentHeight)}}
	if err := c.getJSON(ctx, "app.bsky.feed.getPostThread", q, &out); err != nil {
		return nil, err
	}
	return out.Thread, nil
}

// UploadBlob stores data on the PDS and returns the blob reference to embed.
func (c *Client) UploadBlob(ctx context.Context, data []byte, mimeType string) (*Blob, error) {
	var out struct {
		Blob Blob `json:"blob"`
	}
	cl := call{method: fasthttp.MethodPost, nsid: "com.atproto.repo.uploadBlob", body: data, contentType: mimeType, auth: authAccess}
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return &out.Blob, nil
}

// CreatePost writes rec to the logged-in account's repo.
func (c *Client) CreatePost(ctx context.Context, rec *PostRecord) (StrongRef, error) {
	s := c.Session()
	if s == nil {
		return StrongRef{}, ErrNoSession
	}
	if rec.Type == "" {
		rec.Type = TypePost
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	in := struct {
		Repo       string      `json:"repo"`
		Collection string      `json:"collection"`
		Record     *PostRecord `json:"record"`
	}{Repo: s.DID, Collection: TypePost, Record: rec}
	var out StrongRef
	if err := c.postJSON(ctx, "com.atproto.repo.createRecord", in, authAccess, &out); err != nil {
		return StrongRef{}, err
	}
	return out, nil
}
