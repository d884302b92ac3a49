package http

import (
	"html/template"
	"strings"

	"fintrack/internal/core"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	return stripControl(strings.TrimSpace(s))
}

// stripControl drops control characters other than tab and line breaks.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatDollars formats an amount as "$12.30".
func formatDollars(m core.Money) string {
	if m.Cents < 0 {
		return "-$" + core.Cents(-m.Cents).String()
	}
	return "$" + m.String()
}

// formatSigned prefixes the amount with the sign its kind implies.
func formatSigned(m core.Money, kind core.Kind) string {
	if kind == core.KindIncome {
		return "+" + formatDollars(m)
	}
	return "-" + formatDollars(m)
}

var templateFuncs = template.FuncMap{
	"dollars": formatDollars,
	"signed":  formatSigned,
	"category": func(name string, kind core.Kind) core.Category {
		c, _ := core.LookupCategory(name, kind)
		return c
	},
}
