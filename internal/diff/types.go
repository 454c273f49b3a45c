// Package diff compares two spec snapshots and produces a classified,
// prioritized change plan. The plan's record list is canonical: every
// output format is a projection of the same sorted list.
package diff

import (
	"fmt"
	"sort"
)

// Category classifies one detected change.
type Category string

const (
	CategoryRemovedEndpoint  Category = "removed-endpoint"
	CategoryRemovedSchema    Category = "removed-schema"
	CategoryNewEndpoint      Category = "new-endpoint"
	CategoryNewSchema        Category = "new-schema"
	CategoryModifiedSchema   Category = "modified-schema"
	CategoryNewEnumValue     Category = "new-enum-value"
	CategoryRemovedEnumValue Category = "removed-enum-value"
)

// Priority ranks changes from breaking removal (P0) to purely
// additive (P4).
type Priority int

const (
	P0 Priority = iota
	P1
	P2
	P3
	P4
)

func (p Priority) String() string {
	return fmt.Sprintf("P%d", int(p))
}

// MarshalJSON renders priorities as "P0".."P4" so the JSON projection
// reads the same as the plan and changelog.
func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts the "Pn" form.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var n int
	if _, err := fmt.Sscanf(string(data), `"P%d"`, &n); err != nil {
		return fmt.Errorf("invalid priority %s", data)
	}
	if n < 0 || n > 4 {
		return fmt.Errorf("priority out of range: %s", data)
	}
	*p = Priority(n)
	return nil
}

// ChangeRecord represents one detected difference between snapshots.
type ChangeRecord struct {
	Category Category `json:"category"`
	Subject  string   `json:"subject"`
	Detail   string   `json:"detail,omitempty"`
	Priority Priority `json:"priority"`

	// Group is the configured category-rule name the subject matched,
	// empty when no rule applies.
	Group string `json:"group,omitempty"`

	// Critical marks subjects on the configured critical-model list.
	Critical bool `json:"critical,omitempty"`

	// Warnings carries non-fatal issues hit while producing this
	// record, such as unresolvable schema references.
	Warnings []string `json:"warnings,omitempty"`
}

// ChangePlan is the canonical, sorted change set for one comparison.
type ChangePlan struct {
	Records []ChangeRecord `json:"records"`
}

// IsEmpty reports whether the comparison found no differences.
// An empty plan is a valid, successful outcome.
func (p *ChangePlan) IsEmpty() bool {
	return len(p.Records) == 0
}

// Bucket returns the records at a given priority, in canonical order.
func (p *ChangePlan) Bucket(priority Priority) []ChangeRecord {
	var out []ChangeRecord
	for _, r := range p.Records {
		if r.Priority == priority {
			out = append(out, r)
		}
	}
	return out
}

// ByCategory returns the records in a given category, in canonical order.
func (p *ChangePlan) ByCategory(category Category) []ChangeRecord {
	var out []ChangeRecord
	for _, r := range p.Records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// CountByPriority returns record counts per priority bucket.
func (p *ChangePlan) CountByPriority() map[Priority]int {
	counts := make(map[Priority]int)
	for _, r := range p.Records {
		counts[r.Priority]++
	}
	return counts
}

// Subjects returns the distinct subjects mentioned by the plan,
// sorted. Every projection mentions exactly this set.
func (p *ChangePlan) Subjects() []string {
	seen := make(map[string]bool)
	var subjects []string
	for _, r := range p.Records {
		if !seen[r.Subject] {
			seen[r.Subject] = true
			subjects = append(subjects, r.Subject)
		}
	}
	sort.Strings(subjects)
	return subjects
}

// sortRecords puts records into canonical order: priority ascending,
// then subject, then category, then detail. The trailing keys only
// break ties between records sharing a subject (multiple enum values,
// for instance) so output stays byte-identical across runs.
func sortRecords(records []ChangeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		if records[i].Subject != records[j].Subject {
			return records[i].Subject < records[j].Subject
		}
		if records[i].Category != records[j].Category {
			return records[i].Category < records[j].Category
		}
		return records[i].Detail < records[j].Detail
	})
}
