package render

import (
	"fmt"
	"strings"

	"specsync/internal/diff"
)

// categoryOrder fixes the changelog section sequence: breaking
// removals first, then additions, then modifications.
var categoryOrder = []diff.Category{
	diff.CategoryRemovedEndpoint,
	diff.CategoryRemovedSchema,
	diff.CategoryRemovedEnumValue,
	diff.CategoryNewEndpoint,
	diff.CategoryNewSchema,
	diff.CategoryNewEnumValue,
	diff.CategoryModifiedSchema,
}

var categoryTitles = map[diff.Category]string{
	diff.CategoryRemovedEndpoint:  "Removed endpoints",
	diff.CategoryRemovedSchema:    "Removed schemas",
	diff.CategoryRemovedEnumValue: "Removed enum values",
	diff.CategoryNewEndpoint:      "New endpoints",
	diff.CategoryNewSchema:        "New schemas",
	diff.CategoryNewEnumValue:     "New enum values",
	diff.CategoryModifiedSchema:   "Modified schemas",
}

// Changelog renders the prose projection: one section per category,
// one line per record.
func Changelog(plan *diff.ChangePlan) string {
	var b strings.Builder

	b.WriteString("# API Change Summary\n\n")

	if plan.IsEmpty() {
		b.WriteString("No changes detected.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%d change(s) detected.\n", len(plan.Records)))

	for _, category := range categoryOrder {
		records := plan.ByCategory(category)
		if len(records) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("\n## %s (%d)\n\n", categoryTitles[category], len(records)))
		for _, rec := range records {
			b.WriteString("- `" + rec.Subject + "`")
			if rec.Critical {
				b.WriteString(" [critical]")
			}
			if rec.Detail != "" {
				b.WriteString(": " + rec.Detail)
			}
			b.WriteString("\n")
			for _, w := range rec.Warnings {
				b.WriteString("  - warning: " + w + "\n")
			}
		}
	}

	return b.String()
}
