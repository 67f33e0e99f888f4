package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	abTables tableFlags
	abSave   bool
	abJobs   int
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple tables concurrently with progress and optional import",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		results := make([][]*dataset.Dataset, len(files))
		g, _ := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(abJobs, 1))
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				tables, err := abTables.load(path)
				if err != nil {
					return err
				}
				logger.Debug("loaded table file", zap.String("file", path), zap.Int("tables", len(tables)))
				results[i] = tables
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var saveTo store.Store
		if abSave {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			saveTo = s
		}

		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			for _, ds := range results[i] {
				rep, err := analysis.AnalyzeDataset(ds)
				if err != nil {
					return err
				}
				for _, w := range rep.Warnings {
					if !abQuiet {
						fmt.Fprintf(out, "⚠ %s: %s\n", ds.Name, w)
					}
				}
				if saveTo != nil {
					sum, err := saveTo.SaveDataset(cmd.Context(), ds)
					if err != nil {
						return err
					}
					if !abQuiet {
						fmt.Fprintf(out, "✓ Dataset added: %s (%s, %d rows)\n", sum.ID, displayName(sum), sum.Rows)
					}
					continue
				}
				if !abQuiet {
					fmt.Fprintln(out, rep.Markdown())
				}
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths into a sorted, de-duplicated
// file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abTables.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().BoolVar(&abSave, "save", false, "import every table into the store instead of printing reports")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", runtime.NumCPU(), "files loaded in parallel")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
