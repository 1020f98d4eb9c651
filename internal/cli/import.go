package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"media-catalog/internal/formats"
	"media-catalog/internal/ingest"
)

func newImportCommand(flags *globalFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "import PATH...",
		Short: "Import files and directories into the catalog",
		Long: fmt.Sprintf(`Imports every supported photo, raw image and video found under the given
paths. Directories are walked recursively and hidden entries are skipped.
Content that is already cataloged is reported and left untouched.

Supported formats: %s

The command exits with status 1 when any file failed to import.`, supportedFormats()),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, true)
			if err != nil {
				return err
			}

			progress := newProgress(cmd.OutOrStdout(), verbose)
			p, err := startPipeline(cmd.Context(), cfg, progress.report)
			if err != nil {
				return err
			}
			defer p.Close()

			summary, _ := p.importer.ImportPaths(cmd.Context(), args)
			progress.finish()
			p.recordRun(cmd.Context())

			printSummary(cmd.OutOrStdout(), summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print one line per file")
	return cmd
}

func supportedFormats() string {
	kinds := formats.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// progress prints per-file lines, or a single updating counter line when the
// output is a terminal.
type progress struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	live    bool
	counts  [4]int
}

func newProgress(out io.Writer, verbose bool) *progress {
	return &progress{out: out, verbose: verbose, live: !verbose && isTerminal(out)}
}

func (p *progress) report(r ingest.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(r.Outcome) < len(p.counts) {
		p.counts[r.Outcome]++
	}
	switch {
	case p.verbose:
		fmt.Fprintln(p.out, resultLine(r))
	case p.live:
		fmt.Fprintf(p.out, "\rImported %d, already present %d, skipped %d, failed %d",
			p.counts[ingest.Imported], p.counts[ingest.AlreadyPresent],
			p.counts[ingest.Skipped], p.counts[ingest.Failed])
	}
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live {
		fmt.Fprintln(p.out)
	}
}

func resultLine(r ingest.Result) string {
	switch r.Outcome {
	case ingest.Imported:
		return fmt.Sprintf("imported  %s -> #%d (%s)", r.Path, r.EntityID, humanize.IBytes(uint64(r.Size)))
	case ingest.AlreadyPresent:
		return fmt.Sprintf("present   %s (#%d)", r.Path, r.ExistingID)
	case ingest.Skipped:
		return fmt.Sprintf("skipped   %s", r.Path)
	default:
		return fmt.Sprintf("failed    %s: %v", r.Path, r.Err)
	}
}

func printSummary(out io.Writer, s ingest.Summary) {
	fmt.Fprintf(out, "Run %s finished in %v\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Imported:        %d (%s)\n", s.Imported, humanize.IBytes(uint64(s.Bytes)))
	fmt.Fprintf(out, "  Already present: %d\n", s.AlreadyPresent)
	fmt.Fprintf(out, "  Skipped:         %d\n", s.Skipped)
	fmt.Fprintf(out, "  Failed:          %d\n", s.Failed)
	if s.WalkErrors > 0 {
		fmt.Fprintf(out, "  Unreadable paths: %d\n", s.WalkErrors)
	}
}
