package render

import (
	"fmt"
	"strings"

	"specsync/internal/diff"
)

var priorityTitles = map[diff.Priority]string{
	diff.P0: "Breaking removals",
	diff.P1: "New endpoints",
	diff.P2: "New schemas and critical updates",
	diff.P3: "Enum additions",
	diff.P4: "Non-breaking modifications",
}

var categoryActions = map[diff.Category]string{
	diff.CategoryRemovedEndpoint:  "remove client support for this endpoint",
	diff.CategoryRemovedSchema:    "remove this model",
	diff.CategoryRemovedEnumValue: "remove the enum value and audit exhaustive switches",
	diff.CategoryNewEndpoint:      "implement client support for this endpoint",
	diff.CategoryNewSchema:        "add this model",
	diff.CategoryNewEnumValue:     "add the enum value",
	diff.CategoryModifiedSchema:   "update the model",
}

// Plan renders the checklist projection: one bucket per priority with
// a checkbox item per record.
func Plan(plan *diff.ChangePlan) string {
	var b strings.Builder

	b.WriteString("# Update Plan\n\n")

	counts := plan.CountByPriority()
	b.WriteString(fmt.Sprintf("P0: %d  P1: %d  P2: %d  P3: %d  P4: %d\n",
		counts[diff.P0], counts[diff.P1], counts[diff.P2], counts[diff.P3], counts[diff.P4]))

	if plan.IsEmpty() {
		b.WriteString("\nNothing to do.\n")
		return b.String()
	}

	for _, priority := range []diff.Priority{diff.P0, diff.P1, diff.P2, diff.P3, diff.P4} {
		records := plan.Bucket(priority)
		if len(records) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("\n## %s: %s\n\n", priority, priorityTitles[priority]))
		for _, rec := range records {
			b.WriteString(fmt.Sprintf("- [ ] `%s`", rec.Subject))
			if rec.Critical {
				b.WriteString(" [critical]")
			}
			b.WriteString(": " + categoryActions[rec.Category])
			if rec.Detail != "" {
				b.WriteString(" (" + rec.Detail + ")")
			}
			b.WriteString("\n")
			for _, w := range rec.Warnings {
				b.WriteString("  - warning: " + w + "\n")
			}
		}
	}

	return b.String()
}
