// Command viewer opens an interactive window onto a pathsense run.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/Garsondee/pathsense/internal/config"
	"github.com/Garsondee/pathsense/internal/viewer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "viewer CONFIG",
		Short: "Step through a run in a window",
		Long: `Viewer loads a simulator config and shows the grid, the agent's search
workings and path, and optionally the truthfulness heatmap.

Keys: Space step, Enter run/pause, R reset, W workings, H heatmap,
C copy report, L reload, , and . change speed, F1 help.

The map, cost and script files are watched and reloaded on change.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			slog.SetDefault(logger)

			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			s, err := viewer.NewSession(cfg, logger)
			if err != nil {
				return err
			}
			v := viewer.New(s, logger)
			if !noWatch {
				if err := v.Watch(cmd.Context()); err != nil {
					logger.Warn("file watching disabled", "err", err)
				}
			}

			ebiten.SetWindowTitle("pathsense - " + cfg.MapFile)
			ebiten.SetWindowSize(v.WindowSize())
			ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
			return ebiten.RunGame(v)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload when input files change")
	return cmd
}
