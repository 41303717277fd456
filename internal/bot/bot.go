package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/park285/bsky-shogi-thread/internal/bsky"
	"github.com/park285/bsky-shogi-thread/internal/obslog"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

// State is where a run ended.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateResolved  State = "resolved"
	StateExhausted State = "exhausted"
	StateTerminal  State = "terminal"
)

// RunResult describes one invocation.
type RunResult struct {
	RunID     string
	State     State
	Thread    *Thread
	Move      *ResolvedMove
	Status    shogi.Status
	Rejected  []error
	Published []bsky.StrongRef
}

type Config struct {
	Feed     Feed
	Rules    Rules
	Notation Notation
	Renderer Renderer
	Texts    Texts
	Self     Identity
	Scan     ScanOptions
	Langs    []string
	Now      func() time.Time
}

// Bot plays one turn per Run.
type Bot struct {
	feed     Feed
	rules    Rules
	notation Notation
	composer *Composer
	self     Identity
	scan     ScanOptions
}

func New(cfg Config) *Bot {
	return &Bot{
		feed:     cfg.Feed,
		rules:    cfg.Rules,
		notation: cfg.Notation,
		composer: NewComposer(cfg.Feed, cfg.Renderer, cfg.Texts, cfg.Langs, cfg.Now),
		self:     cfg.Self,
		scan:     cfg.Scan,
	}
}

// Run reads the latest game post, applies the newest legal reply and
// publishes the answer. Finding no usable reply is not an error.
func (b *Bot) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), State: StateIdle}
	log := obslog.L().With(zap.String("run_id", res.RunID))

	if err := b.resolve(ctx, log, res); err != nil || res.Move == nil {
		return res, err
	}
	winner := res.Move.Candidate

	rec, err := b.composer.ComposeMoveReply(ctx, winner.Post, winner.Record, res.Move)
	if err != nil {
		return res, err
	}
	moveRef, err := b.publish(ctx, log, "move", rec)
	if err != nil {
		return res, err
	}
	res.Published = append(res.Published, moveRef)

	res.Status = Classify(b.rules, res.Move.Position)
	if !res.Status.Finished() {
		return res, nil
	}
	res.State = StateTerminal
	log.Info("game_over", zap.String("outcome", res.Status.Outcome.String()), zap.String("reason", string(res.Status.Reason)))

	summary, err := b.composer.ComposeTerminationSummary(moveRef, res.Move.Position, res.Status)
	if err != nil {
		return res, err
	}
	ref, err := b.publish(ctx, log, "summary", summary)
	if err != nil {
		return res, err
	}
	res.Published = append(res.Published, ref)

	ref, err = b.startGame(ctx, log)
	if err != nil {
		return res, err
	}
	res.Published = append(res.Published, ref)
	return res, nil
}

// Preview scans and resolves like Run but publishes and uploads nothing. The
// status of the resolved position is filled in.
func (b *Bot) Preview(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: uuid.NewString(), State: StateIdle}
	log := obslog.L().With(zap.String("run_id", res.RunID), zap.Bool("preview", true))
	if err := b.resolve(ctx, log, res); err != nil || res.Move == nil {
		return res, err
	}
	res.Status = Classify(b.rules, res.Move.Position)
	return res, nil
}

// resolve fills res with the thread and the first candidate that plays.
func (b *Bot) resolve(ctx context.Context, log *zap.Logger, res *RunResult) error {
	th, err := ScanThread(ctx, b.feed, b.self, b.scan)
	if err != nil {
		return err
	}
	res.Thread = th
	res.State = StateScanning
	resolver := NewResolver(th.Position, b.rules, b.notation)
	var rejected error
	for _, c := range th.Candidates {
		rm, err := resolver.Try(c.Text)
		if err != nil {
			if !IsCandidateError(err) {
				return err
			}
			rejected = multierr.Append(rejected, fmt.Errorf("%s: %w", c.Post.URI, err))
			log.Debug("candidate_rejected", zap.String("uri", c.Post.URI), zap.String("text", truncate(c.Text, 80)), zap.Error(err))
			continue
		}
		rm.Candidate = c
		res.Move = rm
		break
	}
	res.Rejected = multierr.Errors(rejected)

	if res.Move == nil {
		res.State = StateExhausted
		log.Info("run_exhausted", zap.Int("candidates", len(th.Candidates)), zap.Error(rejected))
		return nil
	}
	if rejected != nil {
		log.Warn("candidates_rejected", zap.Int("count", len(res.Rejected)), zap.Error(rejected))
	}
	res.State = StateResolved
	log.Info("move_resolved",
		zap.String("usi", res.Move.Move.String()),
		zap.String("notation", res.Move.Notation),
		zap.String("author", res.Move.Candidate.Post.Author.Handle),
	)
	return nil
}

// StartGame publishes a fresh game from the initial position.
func (b *Bot) StartGame(ctx context.Context) (bsky.StrongRef, error) {
	return b.startGame(ctx, obslog.L().With(zap.String("run_id", uuid.NewString())))
}

func (b *Bot) startGame(ctx context.Context, log *zap.Logger) (bsky.StrongRef, error) {
	rec, err := b.composer.ComposeGameStart(ctx)
	if err != nil {
		return bsky.StrongRef{}, err
	}
	return b.publish(ctx, log, "game_start", rec)
}

func (b *Bot) publish(ctx context.Context, log *zap.Logger, kind string, rec *bsky.PostRecord) (bsky.StrongRef, error) {
	ref, err := b.feed.CreatePost(ctx, rec)
	if err != nil {
		return bsky.StrongRef{}, fmt.Errorf("publish %s: %w", kind, err)
	}
	log.Info("post_published", zap.String("kind", kind), zap.String("uri", ref.URI))
	return ref, nil
}
