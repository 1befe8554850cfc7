package inventory

// ReminderType groups reminders on the reminders screen
type ReminderType string

const (
	ReminderPurchase ReminderType = "purchase"
	ReminderExpiry   ReminderType = "expiry"
	ReminderCustom   ReminderType = "custom"
	// ReminderAll disables type filtering
	ReminderAll ReminderType = "all"
)

// Priority of a reminder
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Reminder is a purchase or expiry notice for one item
type Reminder struct {
	ID       int          `json:"id"`
	Type     ReminderType `json:"type"`
	Item     string       `json:"item"`
	Message  string       `json:"message"`
	Priority Priority     `json:"priority"`
	Time     string       `json:"time"`
}

// FilterReminders keeps reminders of kind, or all of them for ReminderAll
func FilterReminders(reminders []Reminder, kind ReminderType) []Reminder {
	if kind == ReminderAll || kind == "" {
		out := make([]Reminder, len(reminders))
		copy(out, reminders)
		return out
	}

	out := []Reminder{}
	for _, r := range reminders {
		if r.Type == kind {
			out = append(out, r)
		}
	}
	return out
}
