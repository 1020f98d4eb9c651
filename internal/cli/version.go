package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"media-catalog/internal/config"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := config.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "media-catalog version %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}
