package core

import "strings"

// Category is static reference data used to decorate transactions.
// Transactions refer to it by free-text name only.
type Category struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"type"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// ChartFallbackColor is used for chart slices whose category is unknown.
const ChartFallbackColor = "#8884d8"

var (
	fallbackExpense = Category{Kind: KindExpense, Icon: "📊", Color: "#ef4444"}
	fallbackIncome  = Category{Kind: KindIncome, Icon: "💰", Color: "#10b981"}
)

// DefaultCategories is the fixed catalog, expenses first.
var DefaultCategories = []Category{
	{Name: "Food & Dining", Kind: KindExpense, Icon: "🍽️", Color: "#ef4444"},
	{Name: "Transportation", Kind: KindExpense, Icon: "🚗", Color: "#3b82f6"},
	{Name: "Shopping", Kind: KindExpense, Icon: "🛍️", Color: "#8b5cf6"},
	{Name: "Entertainment", Kind: KindExpense, Icon: "🎬", Color: "#06b6d4"},
	{Name: "Bills & Utilities", Kind: KindExpense, Icon: "📱", Color: "#f59e0b"},
	{Name: "Healthcare", Kind: KindExpense, Icon: "🏥", Color: "#10b981"},
	{Name: "Education", Kind: KindExpense, Icon: "📚", Color: "#6366f1"},
	{Name: "Travel", Kind: KindExpense, Icon: "✈️", Color: "#ec4899"},
	{Name: "Salary", Kind: KindIncome, Icon: "💰", Color: "#10b981"},
	{Name: "Freelance", Kind: KindIncome, Icon: "💻", Color: "#3b82f6"},
	{Name: "Investment", Kind: KindIncome, Icon: "📈", Color: "#8b5cf6"},
	{Name: "Gift", Kind: KindIncome, Icon: "🎁", Color: "#f59e0b"},
}

// CategoriesFor returns the catalog entries of the given kind. An empty kind
// returns the whole catalog.
func CategoriesFor(kind Kind) []Category {
	out := make([]Category, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// LookupCategory finds the catalog entry for name within kind. Matching is
// exact after trimming. When nothing matches, a kind-specific fallback
// carrying the given name is returned with ok=false; that is not an error.
func LookupCategory(name string, kind Kind) (c Category, ok bool) {
	name = strings.TrimSpace(name)
	for _, cat := range DefaultCategories {
		if cat.Name == name && (kind == "" || cat.Kind == kind) {
			return cat, true
		}
	}
	if kind == KindIncome {
		c = fallbackIncome
	} else {
		c = fallbackExpense
	}
	c.Name = name
	return c, false
}
