package stats

import (
	"reflect"
	"testing"
	"time"

	"fintrack/internal/core"
)

func tx(kind core.Kind, cents int64, category string, date core.Date) core.Transaction {
	return core.Transaction{Kind: kind, Amount: core.Cents(cents), Category: category, Date: date}
}

func TestComputeScenario(t *testing.T) {
	txs := []core.Transaction{
		tx(core.KindIncome, 100000, "Salary", core.NewDate(2024, 1, 1)),
		tx(core.KindExpense, 20000, "Food & Dining", core.NewDate(2024, 1, 1)),
		tx(core.KindExpense, 5000, "Transportation", core.NewDate(2024, 1, 2)),
	}
	s := Compute(txs)
	if s.TotalIncome.Cents != 100000 || s.TotalExpenses.Cents != 25000 || s.Balance.Cents != 75000 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	want := map[string]core.Money{"Food & Dining": core.Cents(20000), "Transportation": core.Cents(5000)}
	if !reflect.DeepEqual(s.ExpensesByCategory, want) {
		t.Fatalf("by category = %v, want %v", s.ExpensesByCategory, want)
	}
}

func TestComputeInvariants(t *testing.T) {
	lists := map[string][]core.Transaction{
		"empty": nil,
		"only income": {
			tx(core.KindIncome, 1, "Gift", core.NewDate(2024, 1, 1)),
		},
		"negative balance": {
			tx(core.KindIncome, 10, "Gift", core.NewDate(2024, 1, 1)),
			tx(core.KindExpense, 33, "Travel", core.NewDate(2024, 1, 2)),
			tx(core.KindExpense, 33, "Travel", core.NewDate(2024, 1, 3)),
			tx(core.KindExpense, 1, "", core.NewDate(2024, 1, 3)),
		},
		"fractions": {
			tx(core.KindIncome, 10, "Salary", core.NewDate(2024, 1, 1)),
			tx(core.KindIncome, 20, "Salary", core.NewDate(2024, 1, 1)),
			tx(core.KindExpense, 30, "Shopping", core.NewDate(2024, 1, 1)),
		},
	}
	for name, txs := range lists {
		t.Run(name, func(t *testing.T) {
			s := Compute(txs)
			if s.TotalIncome.Sub(s.TotalExpenses) != s.Balance {
				t.Fatalf("income - expenses != balance: %+v", s)
			}
			var sum core.Money
			for cat, amount := range s.ExpensesByCategory {
				if amount.IsZero() {
					t.Errorf("category %q present with zero total", cat)
				}
				sum = sum.Add(amount)
			}
			if sum != s.TotalExpenses {
				t.Fatalf("category totals %v != total expenses %v", sum, s.TotalExpenses)
			}
			if again := Compute(txs); !reflect.DeepEqual(again, s) {
				t.Fatalf("Compute is not idempotent: %+v vs %+v", again, s)
			}
		})
	}
}

func TestComputeLargestAmounts(t *testing.T) {
	const n = 1000
	txs := make([]core.Transaction, 0, 2*n)
	for i := 0; i < n; i++ {
		txs = append(txs,
			tx(core.KindIncome, core.MaxAmount, "Salary", core.NewDate(2024, 1, 1)),
			tx(core.KindExpense, core.MaxAmount, "Travel", core.NewDate(2024, 1, 1)))
	}
	s := Compute(txs)
	if s.TotalIncome.Cents != n*core.MaxAmount || s.TotalExpenses.Cents != n*core.MaxAmount {
		t.Fatalf("totals wrapped: %+v", s)
	}
	if !s.Balance.IsZero() || s.ExpensesByCategory["Travel"] != s.TotalExpenses {
		t.Fatalf("unexpected balance or breakdown: %+v", s)
	}
	if got := Total(txs[:n]); got.Cents <= 0 {
		t.Fatalf("Total wrapped: %v", got)
	}
}

func TestComputeIncomeOnlyHasNoCategories(t *testing.T) {
	s := Compute([]core.Transaction{tx(core.KindIncome, 500, "Salary", core.NewDate(2024, 1, 1))})
	if len(s.ExpensesByCategory) != 0 {
		t.Fatalf("expected no expense categories, got %v", s.ExpensesByCategory)
	}
}

func TestDailySeries(t *testing.T) {
	today := time.Date(2024, 3, 7, 15, 45, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(core.KindIncome, 1000, "Salary", core.NewDate(2024, 3, 7)),
		tx(core.KindExpense, 200, "Food & Dining", core.NewDate(2024, 3, 7)),
		tx(core.KindExpense, 300, "Food & Dining", core.NewDate(2024, 3, 1)),
		tx(core.KindExpense, 999, "Travel", core.NewDate(2024, 2, 29)), // outside
		tx(core.KindIncome, 999, "Gift", core.NewDate(2024, 3, 8)),     // future
	}
	series := DailySeries(txs, today, DefaultWindowDays)
	if len(series) != DefaultWindowDays {
		t.Fatalf("expected %d points, got %d", DefaultWindowDays, len(series))
	}
	if series[0].Day != core.NewDate(2024, 3, 1) || series[6].Day != core.NewDate(2024, 3, 7) {
		t.Fatalf("unexpected window %s..%s", series[0].Day, series[6].Day)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Day.After(series[i-1].Day.Time) {
			t.Fatalf("series not ascending at %d", i)
		}
	}
	if series[0].Expense.Cents != 300 || series[0].Income.Cents != 0 {
		t.Errorf("first day = %+v", series[0])
	}
	if series[6].Income.Cents != 1000 || series[6].Expense.Cents != 200 {
		t.Errorf("last day = %+v", series[6])
	}
	for _, p := range series[1:6] {
		if !p.Income.IsZero() || !p.Expense.IsZero() {
			t.Errorf("expected empty day %s, got %+v", p.Day, p)
		}
	}
}

func TestDailySeriesWindowSizes(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, n := range []int{1, 7, 31, 400} {
		if got := len(DailySeries(nil, today, n)); got != n {
			t.Errorf("window %d: got %d points", n, got)
		}
	}
	for _, n := range []int{0, -3} {
		if got := DailySeries(nil, today, n); len(got) != 0 {
			t.Errorf("window %d: expected empty series, got %d", n, len(got))
		}
	}
}

func TestDailySeriesUsesTodaysLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-03-07 20:00 UTC is already 2024-03-08 in Tokyo.
	today := time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC).In(tokyo)
	series := DailySeries([]core.Transaction{
		tx(core.KindExpense, 100, "Travel", core.NewDate(2024, 3, 8)),
	}, today, 2)
	if series[1].Day != core.NewDate(2024, 3, 8) || series[1].Expense.Cents != 100 {
		t.Fatalf("unexpected series %+v", series)
	}
}

func TestBreakdown(t *testing.T) {
	s := Compute([]core.Transaction{
		tx(core.KindExpense, 300, "Travel", core.NewDate(2024, 1, 1)),
		tx(core.KindExpense, 100, "Mystery", core.NewDate(2024, 1, 1)),
		tx(core.KindExpense, 300, "Shopping", core.NewDate(2024, 1, 1)),
	})
	got := Breakdown(s)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	if !reflect.DeepEqual(names, []string{"Shopping", "Travel", "Mystery"}) {
		t.Fatalf("unexpected order %v", names)
	}
	if got[2].Color != core.ChartFallbackColor {
		t.Errorf("unknown category color = %s", got[2].Color)
	}
	if got[0].Color != "#8b5cf6" || got[0].Share != 42.9 {
		t.Errorf("unexpected slice %+v", got[0])
	}
}

func TestRecentAndTotal(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 8; i++ {
		txs = append(txs, tx(core.KindExpense, int64(i+1), "Travel", core.NewDate(2024, 1, i+1)))
	}
	recent := Recent(txs, 5)
	if len(recent) != 5 || recent[0].Amount.Cents != 1 {
		t.Fatalf("unexpected recent %+v", recent)
	}
	recent[0].Category = "changed"
	if txs[0].Category != "Travel" {
		t.Fatalf("Recent must not alias the input")
	}
	if len(Recent(txs[:2], 5)) != 2 {
		t.Fatalf("Recent should cap at list length")
	}
	if got := Total(txs); got.Cents != 36 {
		t.Fatalf("Total = %d, want 36", got.Cents)
	}
}
