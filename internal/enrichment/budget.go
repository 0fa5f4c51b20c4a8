package enrichment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Allocation is the estimated yearly spend for one budget category.
type Allocation struct {
	Category string
	Amount   decimal.Decimal
}

var budgetGuidelines = []struct {
	category string
	share    decimal.Decimal
}{
	{"housing", decimal.RequireFromString("0.30")},
	{"groceries", decimal.RequireFromString("0.10")},
	{"transportation", decimal.RequireFromString("0.10")},
	{"utilities", decimal.RequireFromString("0.07")},
	{"clothing", decimal.RequireFromString("0.05")},
	{"debt_repayment", decimal.RequireFromString("0.10")},
}

// EstimateExpenses splits a yearly income by the budget guidelines. Each
// amount is rounded to cents. A non-positive income yields no allocations.
func EstimateExpenses(income int) []Allocation {
	if income <= 0 {
		return nil
	}
	base := decimal.NewFromInt(int64(income))
	out := make([]Allocation, 0, len(budgetGuidelines))
	for _, g := range budgetGuidelines {
		out = append(out, Allocation{Category: g.category, Amount: base.Mul(g.share).Round(2)})
	}
	return out
}

// Narrative renders the enrichment result as prompt text. Sections appear in
// a fixed order regardless of which lookups finished first.
func Narrative(r Result) string {
	if r.Empty() {
		return "Income and expense data not available."
	}

	var parts []string
	where := r.Location.String()
	if r.MedianIncome != nil {
		parts = append(parts, fmt.Sprintf("The median household income in %s is $%d.", where, *r.MedianIncome))
		allocs := EstimateExpenses(*r.MedianIncome)
		items := make([]string, 0, len(allocs))
		for _, a := range allocs {
			items = append(items, fmt.Sprintf("%s: $%s", a.Category, a.Amount.StringFixed(2)))
		}
		if len(items) > 0 {
			parts = append(parts, "Estimated household expenses: "+strings.Join(items, ", ")+".")
		}
	} else {
		parts = append(parts, "Income and expense data not available.")
	}
	if d := r.Demographic; d != nil {
		parts = append(parts, fmt.Sprintf("%s has a population of %d with a median age of %.1f.", where, d.Population, d.MedianAge))
	}
	if e := r.Employment; e != nil {
		parts = append(parts, fmt.Sprintf("The local unemployment rate is %.1f%% (%d unemployed out of a labor force of %d).", e.Rate(), e.Unemployed, e.LaborForce))
	}
	if h := r.Housing; h != nil {
		parts = append(parts, fmt.Sprintf("The median home value is $%d and the median gross rent is $%d per month.", h.MedianHomeValue, h.MedianGrossRent))
	}
	return strings.Join(parts, " ")
}
