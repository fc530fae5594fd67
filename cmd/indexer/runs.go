package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/runlog"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/postgres"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent builds recorded in Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Postgres.Host == "" {
				return fmt.Errorf("build history needs postgres.host or BS_POSTGRES_HOST")
			}
			ctx := cmd.Context()
			db, err := postgres.New(ctx, a.cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			store := runlog.NewStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			runs, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to list")
	return cmd
}

func printRuns(out io.Writer, runs []runlog.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No builds recorded")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFINISHED\tDOCUMENTS\tTERMS\tTOKENS\tELAPSED\tDATA DIR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%v\t%s\n",
			r.ID,
			humanize.Time(r.FinishedAt),
			humanize.Comma(int64(r.Stats.Documents)),
			humanize.Comma(int64(r.Stats.UniqueTerms)),
			humanize.Comma(r.Stats.Tokens),
			r.Elapsed().Round(time.Millisecond),
			r.DataDir,
		)
	}
	tw.Flush()
}
