package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/listing"
	"fintrack/internal/session"
	"fintrack/internal/stats"
)

var listFlags struct {
	kind     string
	search   string
	category string
	month    string
	sort     string
	order    string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions with filters and sorting",
	Long: `List the account's transactions. Filters combine; sorting is
stable, so records with equal keys keep their list order.

Example:
  fintrack-cli --email ann@example.com list --month 2024-03 --sort amount --order asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := listing.Query{
			Search:   listFlags.search,
			Category: listFlags.category,
			Month:    listFlags.month,
			SortBy:   listing.SortField(listFlags.sort),
			Order:    listing.Order(listFlags.order),
		}
		if listFlags.kind != "" {
			k, err := core.ParseKind(listFlags.kind)
			if err != nil {
				return err
			}
			q.Kind = k
		}
		if err := q.Validate(); err != nil {
			return err
		}
		return withAccount(cmd.Context(), func(ctx context.Context, st *session.State) error {
			printList(cmd.OutOrStdout(), st.Transactions.Query(q))
			return nil
		})
	},
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.kind, "kind", "", "income or expense")
	f.StringVar(&listFlags.search, "search", "", "case-insensitive text in category or description")
	f.StringVar(&listFlags.category, "category", "", "exact category name")
	f.StringVar(&listFlags.month, "month", "", "YYYY-MM")
	f.StringVar(&listFlags.sort, "sort", string(listing.SortByDate), "date, amount or category")
	f.StringVar(&listFlags.order, "order", string(listing.Descending), "asc or desc")
}

func printList(out io.Writer, txs []core.Transaction) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDate\tType\tCategory\tAmount\tDescription")
	for _, tx := range txs {
		sign := "-"
		if tx.Kind == core.KindIncome {
			sign = "+"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%s\t%s\n", tx.ID, tx.Date, tx.Kind, tx.Category, sign, tx.Amount, tx.Description)
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%d transactions, amounts total %s\n", len(txs), stats.Total(txs))
}
