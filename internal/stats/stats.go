// Package stats derives display statistics from a list of transactions.
//
// Every function here is pure: it reads the slice it is given and never
// retains or mutates it, so results are reproducible for an unchanged list.
package stats

import (
	"slices"
	"time"

	"fintrack/internal/core"
)

// DefaultWindowDays is the length of the dashboard's daily series.
const DefaultWindowDays = 7

// Summary holds the headline totals for a set of transactions.
// Balance may be negative.
type Summary struct {
	TotalIncome        core.Money            `json:"total_income"`
	TotalExpenses      core.Money            `json:"total_expenses"`
	Balance            core.Money            `json:"balance"`
	ExpensesByCategory map[string]core.Money `json:"expenses_by_category"`
}

// DailyPoint is one calendar day of the series.
type DailyPoint struct {
	Day     core.Date  `json:"day"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

// CategorySlice is one entry of the expense breakdown chart.
type CategorySlice struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
	Color  string     `json:"color"`
	Icon   string     `json:"icon"`
	// Share of total expenses in percent, rounded to one decimal.
	Share float64 `json:"share"`
}

// Compute sums income and expenses, derives the balance and groups expenses
// by category. Categories without expenses are absent from the map.
func Compute(txs []core.Transaction) Summary {
	s := Summary{ExpensesByCategory: make(map[string]core.Money)}
	for _, tx := range txs {
		switch tx.Kind {
		case core.KindIncome:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case core.KindExpense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
			s.ExpensesByCategory[tx.Category] = s.ExpensesByCategory[tx.Category].Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// DailySeries buckets transactions into the windowDays calendar days ending at
// today inclusive, oldest first. today is truncated to its calendar day in its
// own location. Transactions outside the window are ignored. A non-positive
// window yields an empty series.
func DailySeries(txs []core.Transaction, today time.Time, windowDays int) []DailyPoint {
	if windowDays <= 0 {
		return []DailyPoint{}
	}
	last := core.DateOf(today)
	first := last.AddDays(-(windowDays - 1))

	points := make([]DailyPoint, windowDays)
	for i := range points {
		points[i].Day = first.AddDays(i)
	}
	for _, tx := range txs {
		day := core.DateOf(tx.Date.Time)
		if day.Before(first.Time) || day.After(last.Time) {
			continue
		}
		i := daysBetween(first, day)
		switch tx.Kind {
		case core.KindIncome:
			points[i].Income = points[i].Income.Add(tx.Amount)
		case core.KindExpense:
			points[i].Expense = points[i].Expense.Add(tx.Amount)
		}
	}
	return points
}

// daysBetween counts calendar days from a to b. Both are midnight UTC so the
// difference is an exact multiple of 24h.
func daysBetween(a, b core.Date) int {
	return int(b.Sub(a.Time) / (24 * time.Hour))
}

// Breakdown turns the per-category totals of s into chart slices, largest
// first with ties ordered by name.
func Breakdown(s Summary) []CategorySlice {
	out := make([]CategorySlice, 0, len(s.ExpensesByCategory))
	for name, amount := range s.ExpensesByCategory {
		cat, ok := core.LookupCategory(name, core.KindExpense)
		color := cat.Color
		if !ok {
			color = core.ChartFallbackColor
		}
		out = append(out, CategorySlice{
			Name:   name,
			Amount: amount,
			Color:  color,
			Icon:   cat.Icon,
			Share:  share(amount, s.TotalExpenses),
		})
	}
	slices.SortFunc(out, func(a, b CategorySlice) int {
		if a.Amount.Cents != b.Amount.Cents {
			if a.Amount.Cents > b.Amount.Cents {
				return -1
			}
			return 1
		}
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

func share(part, total core.Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	permille := (part.Cents*1000 + total.Cents/2) / total.Cents
	return float64(permille) / 10
}

// Recent returns at most n transactions from the head of the list.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	if n <= 0 {
		return nil
	}
	if n > len(txs) {
		n = len(txs)
	}
	return slices.Clone(txs[:n])
}

// Total sums the amounts of txs regardless of kind. It is meant for lists
// already filtered to a single kind.
func Total(txs []core.Transaction) core.Money {
	var total core.Money
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
