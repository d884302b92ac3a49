// Package listing filters and orders transactions for the list views.
package listing

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"fintrack/internal/core"
)

// SortField selects the sort key.
type SortField string

const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
)

// Order selects the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Query describes a list view. The zero value lists everything by date,
// newest first.
type Query struct {
	Kind     core.Kind // empty keeps both kinds
	Search   string
	Category string
	Month    string // YYYY-MM
	SortBy   SortField
	Order    Order
}

// Validate rejects unknown sort settings and malformed months.
func (q Query) Validate() error {
	if q.Kind != "" && !q.Kind.IsValid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidKind, q.Kind)
	}
	switch q.SortBy {
	case "", SortByDate, SortByAmount, SortByCategory:
	default:
		return fmt.Errorf("invalid sort field %q", q.SortBy)
	}
	switch q.Order {
	case "", Ascending, Descending:
	default:
		return fmt.Errorf("invalid sort order %q", q.Order)
	}
	if q.Month != "" && !monthPattern.MatchString(q.Month) {
		return fmt.Errorf("invalid month %q (want YYYY-MM)", q.Month)
	}
	return nil
}

// Apply returns a new slice with the matching transactions in the requested
// order. The input is not modified. Sorting is stable in both directions:
// records with equal keys keep their input order.
func Apply(txs []core.Transaction, q Query) []core.Transaction {
	fold := cases.Fold().String
	needle := fold(q.Search)
	category := strings.TrimSpace(q.Category)

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q.Kind != "" && tx.Kind != q.Kind {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		if q.Month != "" && tx.Date.YearMonth() != q.Month {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold(tx.Category), needle) &&
			!strings.Contains(fold(tx.Description), needle) {
			continue
		}
		out = append(out, tx)
	}

	compare := comparator(q.SortBy)
	if q.Order != Ascending {
		asc := compare
		compare = func(a, b core.Transaction) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// Categories returns the distinct category names in txs in collation order,
// for populating a filter drop-down.
func Categories(txs []core.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	var names []string
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		names = append(names, tx.Category)
	}
	slices.SortStableFunc(names, compareCategory)
	return names
}

func comparator(field SortField) func(a, b core.Transaction) int {
	switch field {
	case SortByAmount:
		return func(a, b core.Transaction) int { return cmp.Compare(a.Amount.Cents, b.Amount.Cents) }
	case SortByCategory:
		return func(a, b core.Transaction) int { return compareCategory(a.Category, b.Category) }
	default:
		return func(a, b core.Transaction) int { return a.Date.Compare(b.Date.Time) }
	}
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Und)
)

// compareCategory orders names alphabetically with case and accents as
// tie-breakers. collate.Collator is not safe for concurrent use.
func compareCategory(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}
