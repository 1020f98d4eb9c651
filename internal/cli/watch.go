package cli

import (
	"context"

	"github.com/spf13/cobra"

	"media-catalog/internal/config"
	"media-catalog/internal/ingest"
	"media-catalog/internal/logging"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Import files as they are added to a directory",
		Long: `Imports everything already under DIR, then keeps watching the tree and
imports new files once they have not been written to for WATCH_DEBOUNCE.
Stops on SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, true)
			if err != nil {
				return err
			}

			p, err := startPipeline(cmd.Context(), cfg, func(r ingest.Result) {
				logging.Debug("%s", resultLine(r))
			})
			if err != nil {
				return err
			}
			defer p.Close()

			ctx := cmd.Context()
			if !skipInitial {
				summary, _ := p.importer.ImportPaths(ctx, args)
				p.recordRun(ctx)
				printSummary(cmd.OutOrStdout(), summary)
			}

			watcher := p.importer.NewWatcher(args[0], cfg.WatchDebounce)
			err = watcher.Run(ctx)
			config.LogShutdownInitiated(shutdownReason(ctx))
			config.LogShutdownComplete()
			return err
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "do not import existing files before watching")
	return cmd
}

func shutdownReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "interrupt"
	}
	return "watcher closed"
}
