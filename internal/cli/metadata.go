package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"media-catalog/internal/formats"
	"media-catalog/internal/media"
	"media-catalog/internal/video"
)

func newMetadataCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata PATH",
		Short: "Print the capture metadata of a file",
		Long: `Extracts the capture metadata of a single photo, raw image or video the
same way import does and prints it as JSON. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, false)
			if err != nil {
				return err
			}

			path := args[0]
			kind, ok := formats.Classify(path)
			if !ok {
				return fmt.Errorf("%s: unsupported format", path)
			}

			extractor := newExtractor(
				video.New(cfg.FFprobePath, cfg.FFmpegPath),
				media.NewRawDeveloper(cfg.RawDeveloper),
			)

			meta, err := extractor.Extract(cmd.Context(), path, kind)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			out, err := json.MarshalIndent(meta, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if meta.Location != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Location: %s\n", meta.Location)
			}
			return nil
		},
	}
}
