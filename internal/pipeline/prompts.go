package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPlanCategories is the closed category vocabulary offered to the model.
var DefaultPlanCategories = []string{
	"Work", "Education", "Social", "Health", "Personal", "Chores",
	"Errand", "Meal", "Finance", "Appointments", "Uncategorized",
}

// DefaultPlanPriorities is the closed priority vocabulary, highest first.
var DefaultPlanPriorities = []string{"Very High", "High", "Medium", "Low"}

// PromptPolicy controls the instructions sent with every plan submission.
type PromptPolicy struct {
	Categories     []string
	Priorities     []string
	Location       string
	IncludeExample bool
}

// DefaultPromptPolicy returns the policy used when nothing is configured.
func DefaultPromptPolicy() PromptPolicy {
	return PromptPolicy{
		Categories:     DefaultPlanCategories,
		Priorities:     DefaultPlanPriorities,
		Location:       DefaultLocation,
		IncludeExample: true,
	}
}

// Build returns the system instructions for a plan submission. current is the
// date relative references such as "tomorrow" resolve against.
func (p PromptPolicy) Build(current time.Time, locale string) string {
	var b strings.Builder

	b.WriteString("You are a personal day-planning assistant.\n")
	b.WriteString("Parse the user's description of their plans into a JSON array of schedule items.\n\n")

	b.WriteString("Each item must have these fields:\n")
	b.WriteString("- \"time\": string, a clock time or range (e.g. \"9:00 AM\", \"4:00 PM - 5:00 PM\") or a part of day\n")
	b.WriteString("- \"description\": string, a short description of the activity\n")
	b.WriteString("- \"category\": string, one of: " + quoteList(p.Categories) + "\n")
	b.WriteString("- \"priority\": string, one of: " + quoteList(p.Priorities) + "\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- If no time is given, infer a part of day: \"Morning\", \"Afternoon\" or \"Evening\".\n")
	b.WriteString("- Split sentences that mention several activities into separate items.\n")
	fmt.Fprintf(&b, "- Resolve relative dates against today, %s, in %s, and state them explicitly (e.g. \"Tomorrow 10:00 AM\").\n",
		formatDate(current, locale), p.location())
	b.WriteString("- If the input is vague, return one item with category \"Uncategorized\" and description \"Original input: <input>\".\n")
	b.WriteString("- If the input is not a plan at all, return {\"error\": \"<short reason>\"} instead of an array.\n\n")

	if p.IncludeExample {
		b.WriteString("Example input: \"I have a wedding tomorrow at 2 PM, a test at 10 AM, and an online meeting from 4-5 PM\"\n")
		b.WriteString("Example output:\n")
		b.WriteString(planExample)
		b.WriteString("\n\n")
	}

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences or Markdown.\n")

	return b.String()
}

func (p PromptPolicy) location() string {
	if strings.TrimSpace(p.Location) == "" {
		return DefaultLocation
	}
	return p.Location
}

const planExample = `[
  {"time": "Tomorrow 10:00 AM", "description": "Prepare for and take test", "category": "Education", "priority": "High"},
  {"time": "Tomorrow 2:00 PM", "description": "Attend wedding ceremony", "category": "Social", "priority": "Medium"},
  {"time": "Tomorrow 4:00 PM - 5:00 PM", "description": "Online team meeting", "category": "Work", "priority": "High"}
]`

// dateLayouts maps a locale to its long date layout. Locales not listed use
// the day-month-year order.
var dateLayouts = map[string]string{
	"en-US": "Monday, January 2, 2006",
	"en-CA": "Monday, January 2, 2006",
}

const defaultDateLayout = "Monday, 2 January 2006"

func formatDate(t time.Time, locale string) string {
	layout, ok := dateLayouts[locale]
	if !ok {
		layout = defaultDateLayout
	}
	return t.Format(layout)
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
