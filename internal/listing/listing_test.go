package listing

import (
	"reflect"
	"testing"

	"fintrack/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Kind: core.KindExpense, Amount: core.Cents(500), Category: "Food & Dining", Description: "Pizza night", Date: core.NewDate(2024, 2, 10)},
		{ID: "2", Kind: core.KindExpense, Amount: core.Cents(1200), Category: "Transportation", Description: "Train", Date: core.NewDate(2024, 1, 5)},
		{ID: "3", Kind: core.KindIncome, Amount: core.Cents(300000), Category: "Salary", Date: core.NewDate(2024, 1, 31)},
		{ID: "4", Kind: core.KindExpense, Amount: core.Cents(500), Category: "shopping", Description: "Café au lait", Date: core.NewDate(2024, 2, 10)},
		{ID: "5", Kind: core.KindExpense, Amount: core.Cents(80), Category: "Food & Dining", Description: "COFFEE", Date: core.NewDate(2023, 12, 24)},
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"no-op keeps everything", Query{SortBy: SortByDate, Order: Descending}, []string{"1", "4", "3", "2", "5"}},
		{"expenses only", Query{Kind: core.KindExpense}, []string{"1", "4", "2", "5"}},
		{"search is case-insensitive", Query{Search: "coffee"}, []string{"5"}},
		{"search matches category", Query{Search: "DINING"}, []string{"1", "5"}},
		{"search folds accents case", Query{Search: "CAFÉ"}, []string{"4"}},
		{"empty search matches all", Query{Kind: core.KindIncome}, []string{"3"}},
		{"space is matched literally", Query{Search: " "}, []string{"1", "4", "5"}},
		{"exact category", Query{Category: "Food & Dining"}, []string{"1", "5"}},
		{"category is not a substring match", Query{Category: "Food"}, []string{}},
		{"month", Query{Month: "2024-01"}, []string{"3", "2"}},
		{"combined", Query{Kind: core.KindExpense, Month: "2024-02", Search: "pizza"}, []string{"1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Apply(sample(), tc.q))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplySortIsStable(t *testing.T) {
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		// 1 and 4 share amount and date; input order 1 before 4 must hold both ways.
		{"amount asc", Query{SortBy: SortByAmount, Order: Ascending}, []string{"5", "1", "4", "2", "3"}},
		{"amount desc", Query{SortBy: SortByAmount, Order: Descending}, []string{"3", "2", "1", "4", "5"}},
		{"date asc", Query{SortBy: SortByDate, Order: Ascending}, []string{"5", "2", "3", "1", "4"}},
		{"category asc", Query{SortBy: SortByCategory, Order: Ascending}, []string{"1", "5", "3", "4", "2"}},
		{"category desc", Query{SortBy: SortByCategory, Order: Descending}, []string{"2", "4", "3", "1", "5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Apply(sample(), tc.q))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)
	Apply(in, Query{SortBy: SortByAmount, Order: Ascending})
	if !reflect.DeepEqual(ids(in), before) {
		t.Fatalf("input reordered: %v", ids(in))
	}
}

func TestQueryValidate(t *testing.T) {
	good := []Query{{}, {Month: "2024-12", SortBy: SortByCategory, Order: Ascending, Kind: core.KindIncome}}
	for _, q := range good {
		if err := q.Validate(); err != nil {
			t.Errorf("%+v: unexpected error %v", q, err)
		}
	}
	bad := []Query{{Month: "2024-13"}, {Month: "24-01"}, {SortBy: "name"}, {Order: "up"}, {Kind: "loan"}}
	for _, q := range bad {
		if err := q.Validate(); err == nil {
			t.Errorf("%+v: expected error", q)
		}
	}
}

func TestCategories(t *testing.T) {
	got := Categories(sample())
	want := []string{"Food & Dining", "Salary", "shopping", "Transportation"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
