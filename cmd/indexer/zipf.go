package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/zipf"
)

func newZipfCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "zipf",
		Short: "Analyze the term-frequency report of the last build",
		Long: `Zipf reads zipf.csv from the data directory and compares the ranked term
frequencies with the ideal curve C/rank, where C is the frequency of the
most common term.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("--top must be non-negative, got %d", top)
			}
			path := filepath.Join(a.cfg.Indexer.DataDir, zipf.File)
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening frequency report: %w", err)
			}
			defer f.Close()

			rows, err := zipf.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			printZipf(cmd.OutOrStdout(), zipf.Analyze(rows, top))
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 20, "number of top-ranked terms to list")
	return cmd
}

func printZipf(out io.Writer, s zipf.Summary) {
	fmt.Fprintf(out, "Unique terms: %s\n", humanize.Comma(int64(s.UniqueTerms)))
	fmt.Fprintf(out, "Total occurrences: %s\n", humanize.Comma(s.TotalOccurrences))
	if s.UniqueTerms == 0 {
		return
	}

	fmt.Fprintf(out, "\nTop %d terms:\n", len(s.Top))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "rank\tterm\tfrequency\tC/rank\t")
	for _, r := range s.Top {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t\n", r.Rank, r.Term, humanize.Comma(r.Frequency), s.ZipfConstant/float64(r.Rank))
	}
	tw.Flush()

	fmt.Fprintf(out, "\nHapax legomena: %s (%.1f%%)\n", humanize.Comma(int64(s.Hapax)), s.HapaxShare())
	fmt.Fprintf(out, "Frequency > 1000: %s\n", humanize.Comma(int64(s.HighFrequency)))
	fmt.Fprintf(out, "Frequency 11-1000: %s\n", humanize.Comma(int64(s.MediumFrequency)))
	fmt.Fprintf(out, "Frequency 2-10: %s\n", humanize.Comma(int64(s.LowFrequency)))
	fmt.Fprintf(out, "\nZipf constant C: %.0f\n", s.ZipfConstant)
	fmt.Fprintf(out, "Mean relative error against C/rank: %.1f%%\n", s.MeanRelativeError)
}
