package inventory

import (
	"math"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// AllOption matches every category or location in a Filter
const AllOption = "全部"

// Status is the stock health of an item
type Status string

const (
	StatusCritical Status = "critical"
	StatusWarning  Status = "warning"
	StatusOK       Status = "ok"
)

// Item is one tracked household product
type Item struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	ConsumptionRate float64 `json:"consumptionRate"`
	DaysUntilEmpty  int     `json:"daysUntilEmpty"`
	// ExpiryDate is empty for products without one, cleaning supplies for instance.
	ExpiryDate  string `json:"expiryDate,omitempty"`
	Location    string `json:"location"`
	LastUpdated string `json:"lastUpdated"`
	Status      Status `json:"status"`
}

// Validate will run validation rules
func (i Item) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&i.Category, validation.Required),
		validation.Field(&i.Unit, validation.Required),
		validation.Field(&i.Quantity, validation.Min(0.0)),
		validation.Field(&i.ConsumptionRate, validation.Min(0.0)),
		validation.Field(&i.Location, validation.Required),
		validation.Field(&i.Status, validation.Required, validation.In(StatusCritical, StatusWarning, StatusOK)),
	)
}

// Filter narrows the inventory list. Empty Category or Location behave like
// AllOption.
type Filter struct {
	Search   string
	Category string
	Location string
}

func (f Filter) matches(item Item) bool {
	if !strings.Contains(item.Name, f.Search) {
		return false
	}
	if !isAll(f.Category) && item.Category != f.Category {
		return false
	}
	if !isAll(f.Location) && item.Location != f.Location {
		return false
	}
	return true
}

func isAll(v string) bool {
	return v == "" || v == AllOption
}

// Apply returns the items matching f, soonest to run out first. Items with
// the same DaysUntilEmpty keep their input order. The input is not modified.
func Apply(items []Item, f Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if f.matches(item) {
			out = append(out, item)
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].DaysUntilEmpty < out[b].DaysUntilEmpty
	})

	return out
}

// FilterByStatus keeps the items with the given status, in order
func FilterByStatus(items []Item, status Status) []Item {
	out := []Item{}
	for _, item := range items {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out
}

// Categories lists the distinct categories in first seen order
func Categories(items []Item) []string {
	return distinct(items, func(i Item) string { return i.Category })
}

// Locations lists the distinct locations in first seen order
func Locations(items []Item) []string {
	return distinct(items, func(i Item) string { return i.Location })
}

func distinct(items []Item, key func(Item) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Urgency is the text emphasis used for a days-until-empty figure
type Urgency string

const (
	UrgencyDanger    Urgency = "danger"
	UrgencyWarning   Urgency = "warning"
	UrgencySecondary Urgency = "secondary"
)

// UrgencyLevel maps days until empty to an emphasis level
func UrgencyLevel(daysUntilEmpty int) Urgency {
	switch {
	case daysUntilEmpty <= 3:
		return UrgencyDanger
	case daysUntilEmpty <= 7:
		return UrgencyWarning
	}
	return UrgencySecondary
}

// stockHorizonDays is the window a full stock bar represents
const stockHorizonDays = 14

// StockPercent is the remaining stock bar fill, capped at 100
func (i Item) StockPercent() float64 {
	if i.DaysUntilEmpty <= 0 {
		return 0
	}
	return math.Min(100, float64(i.DaysUntilEmpty)/stockHorizonDays*100)
}

// Progress maps the item status to a progress bar state
func (i Item) Progress() Progress {
	switch i.Status {
	case StatusCritical:
		return ProgressException
	case StatusWarning:
		return ProgressActive
	}
	return ProgressSuccess
}
