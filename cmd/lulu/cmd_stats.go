package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

func newStatsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show model usage recorded in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}

			_, store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

			today, err := store.UsageTotals(cmd.Context(), midnight)
			if err != nil {
				return err
			}
			period, err := store.UsageTotals(cmd.Context(), midnight.AddDate(0, 0, -days))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Today")
			fmt.Fprintln(out, "=====")
			if err := printTotals(out, today); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nLast %d days\n", days)
			fmt.Fprintln(out, "============")
			return printTotals(out, period)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "length of the longer reporting period")
	return cmd
}

// printTotals writes one row per kind and a total row
func printTotals(out io.Writer, totals []domain.UsageTotal) error {
	if len(totals) == 0 {
		_, err := fmt.Fprintln(out, "No requests recorded.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tREQUESTS\tCACHE HITS\tCACHE %\tTOKENS\tAVG LATENCY")

	var sum domain.UsageTotal
	for _, t := range totals {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%.0fms\n",
			t.Kind, t.Requests, t.CacheHits, percent(t.CacheHits, t.Requests), t.EstimatedTokens, t.AvgLatencyMS)
		sum.Requests += t.Requests
		sum.CacheHits += t.CacheHits
		sum.EstimatedTokens += t.EstimatedTokens
	}
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t%s\t%d\t\n", sum.Requests, sum.CacheHits, percent(sum.CacheHits, sum.Requests), sum.EstimatedTokens)
	return w.Flush()
}

func percent(part, whole int) string {
	if whole == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(whole)*100)
}
