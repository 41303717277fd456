package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/bsky-shogi-thread/internal/app"
	"github.com/park285/bsky-shogi-thread/internal/bot"
	"github.com/park285/bsky-shogi-thread/internal/config"
	"github.com/park285/bsky-shogi-thread/internal/obslog"
	"github.com/park285/bsky-shogi-thread/internal/render"
	"github.com/park285/bsky-shogi-thread/internal/runlock"
	"github.com/park285/bsky-shogi-thread/internal/shogi"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Read the latest game post and answer the newest legal reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBot(cmd.Context(), func(ctx context.Context, b *bot.Bot) error {
				res, err := b.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", res.RunID, res.State)
				return nil
			})
		},
	}
}

// newCheckCmd logs in and reports what run would do without posting.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Log in and show the move the next run would play, without posting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBot(cmd.Context(), func(ctx context.Context, b *bot.Bot) error {
				res, err := b.Preview(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "latest:", res.Thread.Latest.URI)
				fmt.Fprintln(out, "position:", bot.DescribeState(res.Thread.Position))
				fmt.Fprintf(out, "candidates: %d, rejected: %d\n", len(res.Thread.Candidates), len(res.Rejected))
				for _, err := range res.Rejected {
					fmt.Fprintln(out, "  rejected:", err)
				}
				if res.Move == nil {
					fmt.Fprintln(out, "move: none")
					return nil
				}
				fmt.Fprintf(out, "move: %s %s (%s)\n", res.Move.Move, res.Move.Notation, res.Move.Candidate.Post.Author.Handle)
				if res.Status.Finished() {
					fmt.Fprintln(out, "ends game:", res.Status.Outcome, res.Status.Reason)
				}
				return nil
			})
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Publish a new game from the initial position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBot(cmd.Context(), func(ctx context.Context, b *bot.Bot) error {
				ref, err := b.StartGame(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ref.URI)
				return nil
			})
		},
	}
}

// withBot builds the bot, takes the run lock when enabled and calls fn.
// A lock held elsewhere ends the invocation without error.
func withBot(ctx context.Context, fn func(context.Context, *bot.Bot) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := obslog.L()

	deps, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			log.Warn("close_failed", zap.Error(cerr))
		}
	}()

	if deps.Locker != nil {
		lock, err := deps.Locker.Acquire(ctx)
		if errors.Is(err, runlock.ErrHeld) {
			log.Info("run_skipped_locked", zap.String("key", cfg.RunLockKey))
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if ok, err := lock.Release(releaseCtx); err != nil || !ok {
				log.Warn("run_lock_release", zap.Bool("released", ok), zap.Error(err))
			}
		}()
	}
	return fn(ctx, deps.Bot)
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode STATE",
		Short: "Show the position an alt-text state decodes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos := bot.DecodeState(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "sfen:", bot.DescribeState(pos))
			fmt.Fprintln(out, "state:", bot.EncodeState(pos))
			status := shogi.Rules{}.Status(pos)
			fmt.Fprintln(out, "status:", status.Outcome, status.Reason)
			if kifu, err := (shogi.Notation{}).Transcript(pos); err == nil && kifu != "" {
				fmt.Fprintln(out, "kifu:", kifu)
			}
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	var (
		output string
		square int
	)
	cmd := &cobra.Command{
		Use:   "render STATE",
		Short: "Render the board image for an alt-text state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos := bot.DecodeState(args[0])
			png, w, h, err := render.New(render.WithSquareSize(square)).Render(cmd.Context(), pos)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d\n", output, w, h)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "board.png", "output PNG path")
	cmd.Flags().IntVar(&square, "square", 60, "square size in pixels")
	return cmd
}
