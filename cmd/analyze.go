package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

// tableFlags are the import flags shared by analyze, add, suggest and
// analyze-batch.
type tableFlags struct {
	delimiter  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (tf *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tf.delimiter, "delimiter", "", "CSV delimiter: ','|';'|'tab' (default: by extension)")
	cmd.Flags().IntVar(&tf.maxRows, "max-rows", 0, "limit data rows read per table (default from config)")
	cmd.Flags().StringVar(&tf.sheetName, "sheet-name", "", "XLSX: only import the named sheet")
	cmd.Flags().IntVar(&tf.sheetIndex, "sheet-index", 0, "XLSX: only import the N-th non-empty sheet (1-based)")
}

func (tf *tableFlags) options() (dataset.Options, error) {
	opt := loaderOptions()
	if tf.maxRows > 0 {
		opt.MaxRows = tf.maxRows
	}
	opt.SheetName = tf.sheetName
	switch tf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", tf.delimiter)
	}
	return opt, nil
}

// load reads path into datasets, honoring --sheet-index.
func (tf *tableFlags) load(path string) ([]*dataset.Dataset, error) {
	opt, err := tf.options()
	if err != nil {
		return nil, err
	}
	tables, err := dataset.LoadFile(path, opt)
	if err != nil {
		return nil, err
	}
	if tf.sheetIndex > 0 {
		if tf.sheetIndex > len(tables) {
			return nil, fmt.Errorf("--sheet-index %d out of range (%d sheets)", tf.sheetIndex, len(tables))
		}
		tables = tables[tf.sheetIndex-1 : tf.sheetIndex]
	}
	return tables, nil
}

var (
	anaTables     tableFlags
	anaOutputPath string
	anaJSON       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV, TSV, XLSX or manual-entry table and print column types and statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := anaTables.load(args[0])
		if err != nil {
			return err
		}
		reports := make([]*analysis.Report, 0, len(tables))
		for _, ds := range tables {
			rep, err := analysis.AnalyzeDataset(ds)
			if err != nil {
				return err
			}
			reports = append(reports, rep)
		}

		var out []byte
		if anaJSON {
			if out, err = utils.PrettyJSON(reports); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			parts := make([]string, len(reports))
			for i, rep := range reports {
				parts[i] = rep.Markdown()
			}
			out = []byte(strings.Join(parts, "\n"))
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaTables.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the analysis to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit reports as JSON")
}
