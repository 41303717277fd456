package bsky

import (
	"encoding/json"
	"errors"
)

// Lexicon type ids used by the bot.
const (
	TypePost                 = "app.bsky.feed.post"
	TypeEmbedImages          = "app.bsky.embed.images"
	TypeEmbedRecord          = "app.bsky.embed.record"
	TypeEmbedRecordWithMedia = "app.bsky.embed.recordWithMedia"
	TypeThreadViewPost       = "app.bsky.feed.defs#threadViewPost"
	TypeReasonRepost         = "app.bsky.feed.defs#reasonRepost"
	TypeBlob                 = "blob"
)

// Session is the authenticated account state returned by createSession and
// refreshSession.
type Session struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// StrongRef points at one version of a record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

func (r StrongRef) IsZero() bool { return r.URI == "" && r.CID == "" }

type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

type BlobLink struct {
	Link string `json:"$link"`
}

type Blob struct {
	Type     string   `json:"$type"`
	Ref      BlobLink `json:"ref"`
	MimeType string   `json:"mimeType"`
	Size     int64    `json:"size"`
}

type AspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Image struct {
	Image       Blob         `json:"image"`
	Alt         string       `json:"alt"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

// Embed covers the embed shapes the bot reads and writes. Record holds either
// a strong ref (app.bsky.embed.record) or a nested record embed
// (app.bsky.embed.recordWithMedia); Media is only set for the latter.
type Embed struct {
	Type   string          `json:"$type"`
	Images []Image         `json:"images,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
	Media  *Embed          `json:"media,omitempty"`
}

func NewImagesEmbed(images ...Image) *Embed {
	return &Embed{Type: TypeEmbedImages, Images: images}
}

// NewQuoteEmbed embeds ref as a quoted record.
func NewQuoteEmbed(ref StrongRef) *Embed {
	raw, _ := json.Marshal(ref)
	return &Embed{Type: TypeEmbedRecord, Record: raw}
}

// AllImages returns the images of an images embed, or of the media part of a
// record-with-media embed.
func (e *Embed) AllImages() []Image {
	if e == nil {
		return nil
	}
	switch e.Type {
	case TypeEmbedImages:
		return e.Images
	case TypeEmbedRecordWithMedia:
		return e.Media.AllImages()
	}
	return nil
}

// Quoted returns the ref of a quote embed.
func (e *Embed) Quoted() (StrongRef, bool) {
	if e == nil || e.Type != TypeEmbedRecord || len(e.Record) == 0 {
		return StrongRef{}, false
	}
	var ref StrongRef
	if err := json.Unmarshal(e.Record, &ref); err != nil || ref.URI == "" {
		return StrongRef{}, false
	}
	return ref, true
}

// PostRecord is the app.bsky.feed.post record.
type PostRecord struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	Reply     *ReplyRef `json:"reply,omitempty"`
	Embed     *Embed    `json:"embed,omitempty"`
	Langs     []string  `json:"langs,omitempty"`
}

// Record is the decoded form of a raw record: KnownPost, OtherRecord or
// UnknownRecord.
type Record interface {
	isRecord()
}

// KnownPost is a well-formed post record.
type KnownPost struct {
	Post *PostRecord
}

// OtherRecord carries a recognizable $type that is not a post.
type OtherRecord struct {
	Type string
}

// UnknownRecord could not be decoded at all.
type UnknownRecord struct {
	Raw json.RawMessage
	Err error
}

func (KnownPost) isRecord()     {}
func (OtherRecord) isRecord()   {}
func (UnknownRecord) isRecord() {}

var errMissingType = errors.New("record without $type")

// DecodeRecord classifies a raw record payload.
func DecodeRecord(raw json.RawMessage) Record {
	var head struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return UnknownRecord{Raw: raw, Err: err}
	}
	if head.Type == "" {
		return UnknownRecord{Raw: raw, Err: errMissingType}
	}
	if head.Type != TypePost {
		return OtherRecord{Type: head.Type}
	}
	var post PostRecord
	if err := json.Unmarshal(raw, &post); err != nil {
		return UnknownRecord{Raw: raw, Err: err}
	}
	return KnownPost{Post: &post}
}

type ProfileViewBasic struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
}

// PostView is a hydrated post as returned by the app view.
type PostView struct {
	URI       string           `json:"uri"`
	CID       string           `json:"cid"`
	Author    ProfileViewBasic `json:"author"`
	Record    json.RawMessage  `json:"record"`
	IndexedAt string           `json:"indexedAt"`
}

func (p *PostView) Ref() StrongRef { return StrongRef{URI: p.URI, CID: p.CID} }

func (p *PostView) Decode() Record { return DecodeRecord(p.Record) }

type FeedViewPost struct {
	Post   PostView        `json:"post"`
	Reason json.RawMessage `json:"reason,omitempty"`
}

// IsRepost reports whether the item appears in the feed because it was
// reposted rather than authored.
func (f *FeedViewPost) IsRepost() bool {
	if len(f.Reason) == 0 {
		return false
	}
	var head struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(f.Reason, &head); err != nil {
		return true
	}
	return head.Type == TypeReasonRepost
}

// ThreadNode is one node of a getPostThread response. Only nodes of type
// threadViewPost carry a post; notFoundPost and blockedPost nodes only carry
// the uri.
type ThreadNode struct {
	Type     string        `json:"$type"`
	URI      string        `json:"uri,omitempty"`
	Post     *PostView     `json:"post,omitempty"`
	Parent   *ThreadNode   `json:"parent,omitempty"`
	Replies  []*ThreadNode `json:"replies,omitempty"`
	NotFound bool          `json:"notFound,omitempty"`
	Blocked  bool          `json:"blocked,omitempty"`
}

func (n *ThreadNode) IsPost() bool {
	return n != nil && n.Type == TypeThreadViewPost && n.Post != nil
}
