// Package render projects a change plan into its output formats. The
// changelog, plan, and JSON projections all derive from the same
// canonical record list; none recomputes anything.
package render

import (
	"fmt"

	"specsync/internal/diff"
)

// Format selects which projection(s) to emit.
type Format string

const (
	FormatChangelog Format = "changelog"
	FormatPlan      Format = "plan"
	FormatJSON      Format = "json"
	FormatAll       Format = "all"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatChangelog, FormatPlan, FormatJSON, FormatAll:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want changelog, plan, json, or all)", s)
	}
}

// File is one rendered output document.
type File struct {
	Name    string
	Content string
}

// Files renders the selected projections. FormatAll yields all three,
// in a fixed order.
func Files(plan *diff.ChangePlan, format Format) ([]File, error) {
	var files []File

	if format == FormatChangelog || format == FormatAll {
		files = append(files, File{Name: "CHANGELOG.md", Content: Changelog(plan)})
	}
	if format == FormatPlan || format == FormatAll {
		files = append(files, File{Name: "PLAN.md", Content: Plan(plan)})
	}
	if format == FormatJSON || format == FormatAll {
		content, err := JSON(plan)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: "changes.json", Content: content})
	}

	return files, nil
}
