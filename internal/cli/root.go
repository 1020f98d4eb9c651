package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"media-catalog/internal/config"
	"media-catalog/internal/logging"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	logLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "media-catalog",
		Short: "Import photos and videos into a deduplicated catalog",
		Long: `media-catalog copies photos and videos into a destination directory,
renders a face-aware thumbnail and a bounded preview for each, extracts
capture metadata and records everything in a sqlite catalog keyed by
content hash.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if flags.logLevel == "" {
				return nil
			}
			level, ok := logging.ParseLevel(flags.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", flags.logLevel)
			}
			logging.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "",
		"TOML configuration file (default: "+config.DefaultFile+" when present)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"log level: debug, info, warn or error (default: LOG_LEVEL)")

	root.AddCommand(
		newImportCommand(flags),
		newWatchCommand(flags),
		newMetadataCommand(flags),
		newInitDBCommand(flags),
		newDeleteCommand(flags),
		newStatsCommand(flags),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// loadConfig resolves the configuration; quiet commands skip the banner
// logging of the effective values.
func loadConfig(flags *globalFlags, verbose bool) (*config.Config, error) {
	if !verbose {
		cfg, err := config.Resolve(flags.configFile)
		if err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
		return cfg, nil
	}

	config.PrintBanner()
	config.LogSystemInfo()
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminalFd(f.Fd())
}
