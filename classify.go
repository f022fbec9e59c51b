package dispatch

import "strings"

// EventCategory classifies an event by its name. Classification only
// influences which queue tier a deferred trigger lands in; it never changes
// whether a trigger is deferred.
type EventCategory int

const (
	// CategoryGeneral is the fallback for names matching no known keyword.
	CategoryGeneral EventCategory = iota

	// CategoryUIUpdate covers interface refresh events.
	CategoryUIUpdate

	// CategoryCombatCritical covers combat-relevant events that should drain
	// ahead of routine work.
	CategoryCombatCritical

	// CategoryDataUpdate covers data and state change notifications.
	CategoryDataUpdate
)

// String returns the string representation of the category.
func (c EventCategory) String() string {
	switch c {
	case CategoryUIUpdate:
		return "ui_update"
	case CategoryCombatCritical:
		return "combat_critical"
	case CategoryDataUpdate:
		return "data_update"
	default:
		return "general"
	}
}

// categoryKeywords maps each category to the substrings that select it.
// Matching is case-insensitive; categories are checked in this order.
var categoryKeywords = []struct {
	category EventCategory
	keywords []string
}{
	{CategoryUIUpdate, []string{"ui", "frame", "button"}},
	{CategoryCombatCritical, []string{"combat", "attack", "spell"}},
	{CategoryDataUpdate, []string{"data", "update"}},
}

// Classify determines the category of an event from its name. It is a pure
// function: case-insensitive substring matching with no side effects, so the
// same name always classifies identically.
func Classify(event string) EventCategory {
	lower := strings.ToLower(event)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}

// DeferPriority returns the queue tier a deferred event of this category
// belongs in.
func (c EventCategory) DeferPriority() Priority {
	if c == CategoryCombatCritical {
		return PriorityHigh
	}
	return PriorityNormal
}
