package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/bsky-shogi-thread/internal/obslog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		obslog.L().Error("command_failed", zap.Error(err))
		_ = obslog.L().Sync()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	_ = obslog.L().Sync()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shogi-thread",
		Short: "Play shogi in a Bluesky thread, one move per invocation",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return obslog.InitFromEnv()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd(), newStartCmd(), newDecodeCmd(), newRenderCmd())
	return root
}
