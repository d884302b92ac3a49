package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/session"
	"fintrack/internal/stats"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals, the expense breakdown and the daily series",
	Long: `Show the account balance, expenses by category and income and
expenses for each of the last days.

Example:
  fintrack-cli --email ann@example.com stats --days 14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsDays < 1 || statsDays > 366 {
			return fmt.Errorf("--days must be between 1 and 366")
		}
		return withAccount(cmd.Context(), func(ctx context.Context, st *session.State) error {
			summary := st.Transactions.Stats()
			printStats(cmd.OutOrStdout(), summary, stats.Breakdown(summary), st.Transactions.DailySeries(statsDays))
			return nil
		})
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", stats.DefaultWindowDays, "days in the daily series")
}

func printStats(out io.Writer, s stats.Summary, breakdown []stats.CategorySlice, series []stats.DailyPoint) {
	fmt.Fprintln(out, "=== Totals ===")
	fmt.Fprintf(out, "Income:   %s\n", s.TotalIncome)
	fmt.Fprintf(out, "Expenses: %s\n", s.TotalExpenses)
	fmt.Fprintf(out, "Balance:  %s\n", s.Balance)

	if len(breakdown) > 0 {
		fmt.Fprintln(out, "\n=== Expenses by category ===")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, c := range breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t\n", c.Name, c.Amount, c.Share)
		}
		tw.Flush()
	}

	fmt.Fprintln(out, "\n=== Daily ===")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Day\tIncome\tExpense\t")
	for _, p := range series {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", p.Day, p.Income, p.Expense)
	}
	tw.Flush()
}
