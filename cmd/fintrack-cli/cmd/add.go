package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/session"
)

var addFlags struct {
	kind        string
	amount      string
	category    string
	date        string
	description string
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction",
	Long: `Record one income or expense. The date defaults to today.

Example:
  fintrack-cli --email ann@example.com add --type expense --amount 12.50 --category Travel --description bus`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := draftFromFlags(time.Now())
		if err != nil {
			return err
		}
		return withAccount(cmd.Context(), func(ctx context.Context, st *session.State) error {
			tx, err := st.Transactions.Create(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s %s %s on %s\n", tx.ID, tx.Kind, tx.Amount, tx.Category, tx.Date)
			return nil
		})
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addFlags.kind, "type", "expense", "income or expense")
	f.StringVar(&addFlags.amount, "amount", "", "amount, e.g. 12.50")
	f.StringVar(&addFlags.category, "category", "", "category name")
	f.StringVar(&addFlags.date, "date", "", "YYYY-MM-DD (default today)")
	f.StringVar(&addFlags.description, "description", "", "free text")
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("category")
}

func draftFromFlags(now time.Time) (core.Draft, error) {
	kind, err := core.ParseKind(addFlags.kind)
	if err != nil {
		return core.Draft{}, err
	}
	amount, err := core.ParseAmount(addFlags.amount)
	if err != nil {
		return core.Draft{}, err
	}
	date := core.DateOf(now)
	if addFlags.date != "" {
		if date, err = core.ParseDate(addFlags.date); err != nil {
			return core.Draft{}, err
		}
	}
	d := core.Draft{
		Kind:        kind,
		Amount:      amount,
		Category:    addFlags.category,
		Description: addFlags.description,
		Date:        date,
	}
	return d, d.Validate()
}
