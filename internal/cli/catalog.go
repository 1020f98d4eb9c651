package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
)

func newInitDBCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the catalog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags, false)
			if err != nil {
				return err
			}
			if err := cfg.Prepare(); err != nil {
				return err
			}
			cat, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cat.Close()

			n, err := cat.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog ready at %s (%d entities)\n", cat.Path(), n)
			return nil
		},
	}
}

func newDeleteCommand(flags *globalFlags) *cobra.Command {
	var (
		id        int64
		yes       bool
		keepFiles bool
	)

	cmd := &cobra.Command{
		Use:   "delete --id ID",
		Short: "Remove an entity and its files from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id <= 0 {
				return errors.New("--id is required")
			}
			cfg, err := loadConfig(flags, false)
			if err != nil {
				return err
			}
			cat, err := catalog.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer cat.Close()

			entity, err := cat.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("entity %d: %w", id, err)
			}

			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Delete entity %d (%s)?", entity.ID, entity.OriginalPath))
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("not confirmed; pass --yes to delete without prompting")
				}
			}

			entity, err = cat.Delete(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to delete entity %d: %w", id, err)
			}
			if !keepFiles {
				removeEntityFiles(entity)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entity %d\n", entity.ID)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&id, "id", "i", 0, "id of the entity to delete")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "leave the original and renditions on disk")
	return cmd
}

func removeEntityFiles(e *catalog.Entity) {
	for _, path := range []string{e.OriginalPath, e.ThumbnailPath, e.PreviewPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("failed to remove %s: %v", path, err)
		}
	}
}

func newStatsCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags, false)
			if err != nil {
				return err
			}
			cat, err := catalog.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer cat.Close()

			stats, err := cat.CalculateStats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printStats(out io.Writer, s catalog.Stats) {
	fmt.Fprintf(out, "Entities: %d (%s)\n", s.TotalEntities, humanize.IBytes(uint64(s.TotalBytes)))

	classes := make([]string, 0, len(s.ByClass))
	for class := range s.ByClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Fprintf(out, "  %-6s %d\n", class+":", s.ByClass[class])
	}

	if s.LastImport.IsZero() {
		fmt.Fprintln(out, "Last import: never")
	} else {
		fmt.Fprintf(out, "Last import: %s (%s)\n", s.LastImport.Format(time.RFC3339), humanize.Time(s.LastImport))
	}
}
