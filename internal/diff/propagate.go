package diff

import (
	"fmt"
	"regexp"
	"sort"

	"specsync/internal/spec"
)

// propagateParents runs the parent-model cross-check: when a child
// schema embedded in a configured parent gains fields, the parent is
// flagged for review even though its own field list did not change.
// Children are discovered by resolving the parent's field references
// one level deep and filtering them through the configured patterns.
func (e *Engine) propagateParents(oldDoc, newDoc spec.Document, touched map[string]bool, modified map[string]*ChangeRecord) {
	parents := e.rules.Parents()
	sort.Strings(parents)

	for _, parent := range parents {
		// A removed/new record for the parent supersedes propagation.
		if touched[parent] {
			continue
		}

		newFields, inNew := newDoc.Schemas()[parent]
		_, inOld := oldDoc.Schemas()[parent]
		if !inNew || !inOld {
			continue
		}

		patterns := e.rules.ChildrenOf(parent)

		children := make(map[string]bool)
		for _, f := range newFields {
			if f.Ref != "" && matchesAny(patterns, f.Ref) {
				children[f.Ref] = true
			}
		}

		for _, child := range sortedKeys(children) {
			// Enum references are covered by the enum value diff.
			if _, isEnum := newDoc.Enums()[child]; isEnum {
				continue
			}

			newChild, okNew := newDoc.Resolve(child)
			oldChild, okOld := oldDoc.Resolve(child)

			if !okNew {
				warning := fmt.Sprintf("embedded reference `%s` could not be resolved", child)
				if okOld {
					// The reference resolved before and no longer
					// does: that is itself a change worth a record.
					rec := e.addModified(modified, parent,
						fmt.Sprintf("embedded `%s` is no longer resolvable; review %s implementation", child, parent))
					rec.Warnings = append(rec.Warnings, warning)
				} else if rec, ok := modified[parent]; ok {
					rec.Warnings = append(rec.Warnings, warning)
				}
				continue
			}
			if !okOld {
				// Child is new; the subject diff already records it.
				continue
			}

			gained := gainedFields(oldChild, newChild)
			if len(gained) == 0 {
				continue
			}
			e.addModified(modified, parent,
				fmt.Sprintf("embedded `%s` gained %s; review %s implementation",
					child, fieldList(gained), parent))
		}
	}
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// gainedFields returns the names of fields present in the new version
// of a schema but not the old, sorted.
func gainedFields(oldFields, newFields spec.FieldMap) []string {
	var gained []string
	for name := range newFields {
		if _, ok := oldFields[name]; !ok {
			gained = append(gained, name)
		}
	}
	sort.Strings(gained)
	return gained
}

func fieldList(names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("field `%s`", names[0])
	}
	out := "fields "
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += "`" + name + "`"
	}
	return out
}
