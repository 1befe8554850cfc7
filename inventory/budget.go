package inventory

import "math"

// BudgetCategory is the monthly spend of one category
type BudgetCategory struct {
	Name   string  `json:"name"`
	Spent  float64 `json:"spent"`
	Budget float64 `json:"budget"`
	Color  string  `json:"color"`
}

// Percentage is the rounded share of the budget already spent
func (c BudgetCategory) Percentage() int {
	return CategoryPercentage(c.Spent, c.Budget)
}

// Remaining is what is left of the budget, negative when overspent
func (c BudgetCategory) Remaining() float64 {
	return c.Budget - c.Spent
}

// Totals aggregates every category
type Totals struct {
	Spent      float64 `json:"spent"`
	Budget     float64 `json:"budget"`
	Percentage int     `json:"percentage"`
}

// BudgetTotal sums spent and budget across categories
func BudgetTotal(categories []BudgetCategory) Totals {
	var t Totals
	for _, c := range categories {
		t.Spent += c.Spent
		t.Budget += c.Budget
	}
	t.Percentage = CategoryPercentage(t.Spent, t.Budget)
	return t
}

// CategoryPercentage returns spent/budget as a rounded percentage, 0 for an
// empty budget.
func CategoryPercentage(spent, budget float64) int {
	if budget == 0 {
		return 0
	}
	return int(math.Round(spent / budget * 100))
}

// Progress is a progress bar state
type Progress string

const (
	ProgressSuccess   Progress = "success"
	ProgressActive    Progress = "active"
	ProgressException Progress = "exception"
)

// ProgressStatus maps a spent percentage to a progress bar state
func ProgressStatus(percentage int) Progress {
	switch {
	case percentage > 90:
		return ProgressException
	case percentage > 70:
		return ProgressActive
	}
	return ProgressSuccess
}
