package diff

import (
	"fmt"
	"sort"

	"specsync/internal/spec"
)

// Engine compares two spec snapshots under a compiled rule set.
type Engine struct {
	rules *Rules
}

// NewEngine creates an engine. A nil rule set behaves like an empty
// classification config.
func NewEngine(rules *Rules) *Engine {
	if rules == nil {
		rules = &Rules{parents: nil, critical: nil}
	}
	return &Engine{rules: rules}
}

// Compare diffs two snapshots of the same flavor and returns the
// canonical change plan. The inputs are never mutated.
func (e *Engine) Compare(oldDoc, newDoc spec.Document) (*ChangePlan, error) {
	if oldDoc.Flavor() != newDoc.Flavor() {
		return nil, fmt.Errorf("cannot compare %s document against %s document",
			oldDoc.Flavor(), newDoc.Flavor())
	}

	var records []ChangeRecord

	// modified collects one record per subject with field-level
	// deltas, so later passes (propagation) can extend them.
	modified := make(map[string]*ChangeRecord)

	// touched marks subjects that already produced a removed/new
	// record; field deltas on those subjects are superseded.
	touched := make(map[string]bool)

	records = append(records, e.diffSubjects(
		oldDoc.Endpoints(), newDoc.Endpoints(),
		CategoryRemovedEndpoint, CategoryNewEndpoint, P1,
		touched, modified)...)

	records = append(records, e.diffSubjects(
		oldDoc.Schemas(), newDoc.Schemas(),
		CategoryRemovedSchema, CategoryNewSchema, P2,
		touched, modified)...)

	records = append(records, e.diffEnums(oldDoc.Enums(), newDoc.Enums())...)

	e.propagateParents(oldDoc, newDoc, touched, modified)

	for _, name := range sortedKeys(modified) {
		records = append(records, *modified[name])
	}

	sortRecords(records)
	return &ChangePlan{Records: records}, nil
}

// diffSubjects runs steps 1-3 of the comparison for one subject kind:
// removals at P0, additions at the kind's default priority, and
// field-level deltas for subjects present on both sides.
func (e *Engine) diffSubjects(
	oldSubjects, newSubjects map[string]spec.FieldMap,
	removedCategory, newCategory Category, newPriority Priority,
	touched map[string]bool, modified map[string]*ChangeRecord,
) []ChangeRecord {
	var records []ChangeRecord

	for _, name := range spec.SubjectNames(oldSubjects) {
		if _, ok := newSubjects[name]; ok {
			continue
		}
		touched[name] = true
		records = append(records, ChangeRecord{
			Category: removedCategory,
			Subject:  name,
			Priority: P0,
			Group:    e.rules.GroupFor(name),
			Critical: e.rules.IsCritical(name),
		})
	}

	for _, name := range spec.SubjectNames(newSubjects) {
		if _, ok := oldSubjects[name]; ok {
			continue
		}
		touched[name] = true
		records = append(records, ChangeRecord{
			Category: newCategory,
			Subject:  name,
			Priority: newPriority,
			Group:    e.rules.GroupFor(name),
			Critical: e.rules.IsCritical(name),
		})
	}

	for _, name := range spec.SubjectNames(oldSubjects) {
		newFields, ok := newSubjects[name]
		if !ok || touched[name] {
			continue
		}
		deltas := fieldDeltas(oldSubjects[name], newFields)
		if len(deltas) == 0 {
			continue
		}
		e.addModified(modified, name, deltas...)
	}

	return records
}

// addModified creates or extends the modified-schema record for a
// subject. Critical subjects are promoted from P4 to P2; removals
// keep P0 to themselves.
func (e *Engine) addModified(modified map[string]*ChangeRecord, name string, deltas ...string) *ChangeRecord {
	rec, ok := modified[name]
	if !ok {
		priority := P4
		if e.rules.IsCritical(name) {
			priority = P2
		}
		rec = &ChangeRecord{
			Category: CategoryModifiedSchema,
			Subject:  name,
			Priority: priority,
			Group:    e.rules.GroupFor(name),
			Critical: e.rules.IsCritical(name),
		}
		modified[name] = rec
	}
	for _, d := range deltas {
		if rec.Detail == "" {
			rec.Detail = d
		} else {
			rec.Detail += "; " + d
		}
	}
	return rec
}

// fieldDeltas computes the field-level differences between two
// versions of a subject, in field-name order.
func fieldDeltas(oldFields, newFields spec.FieldMap) []string {
	var deltas []string

	for _, name := range sortedFieldNames(oldFields, newFields) {
		oldField, inOld := oldFields[name]
		newField, inNew := newFields[name]

		switch {
		case inOld && !inNew:
			deltas = append(deltas, fmt.Sprintf("removed field `%s`", name))
		case !inOld && inNew:
			deltas = append(deltas, fmt.Sprintf("added field `%s` (%s, %s)",
				name, newField.Type, requiredness(newField.Required)))
		default:
			if oldField.Type != newField.Type {
				deltas = append(deltas, fmt.Sprintf("field `%s` type changed from %s to %s",
					name, oldField.Type, newField.Type))
			}
			if oldField.Required != newField.Required {
				deltas = append(deltas, fmt.Sprintf("field `%s` is now %s",
					name, requiredness(newField.Required)))
			}
		}
	}

	return deltas
}

// diffEnums runs step 4: value-level diffs for enums on both sides,
// and subject-level records for enums that appeared or disappeared
// entirely.
func (e *Engine) diffEnums(oldEnums, newEnums map[string][]string) []ChangeRecord {
	var records []ChangeRecord

	for _, name := range sortedKeys(oldEnums) {
		newValues, ok := newEnums[name]
		if !ok {
			records = append(records, ChangeRecord{
				Category: CategoryRemovedSchema,
				Subject:  name,
				Detail:   "enum removed",
				Priority: P0,
				Group:    e.rules.GroupFor(name),
				Critical: e.rules.IsCritical(name),
			})
			continue
		}

		oldSet := valueSet(oldEnums[name])
		newSet := valueSet(newValues)

		for _, v := range oldEnums[name] {
			if !newSet[v] {
				records = append(records, ChangeRecord{
					Category: CategoryRemovedEnumValue,
					Subject:  name,
					Detail:   fmt.Sprintf("removed value `%s`", v),
					Priority: P0,
					Group:    e.rules.GroupFor(name),
					Critical: e.rules.IsCritical(name),
				})
			}
		}
		for _, v := range newValues {
			if !oldSet[v] {
				records = append(records, ChangeRecord{
					Category: CategoryNewEnumValue,
					Subject:  name,
					Detail:   fmt.Sprintf("added value `%s`", v),
					Priority: P3,
					Group:    e.rules.GroupFor(name),
					Critical: e.rules.IsCritical(name),
				})
			}
		}
	}

	for _, name := range sortedKeys(newEnums) {
		if _, ok := oldEnums[name]; !ok {
			records = append(records, ChangeRecord{
				Category: CategoryNewSchema,
				Subject:  name,
				Detail:   "enum added",
				Priority: P2,
				Group:    e.rules.GroupFor(name),
				Critical: e.rules.IsCritical(name),
			})
		}
	}

	return records
}

func requiredness(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}

func valueSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedFieldNames(a, b spec.FieldMap) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var names []string
	for name := range a {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range b {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
