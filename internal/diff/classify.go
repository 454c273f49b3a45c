package diff

import (
	"regexp"

	"specsync/internal/config"
)

// Rules is the compiled form of the classification config consumed by
// the engine for priority and grouping decisions.
type Rules struct {
	categories []categoryRule
	parents    map[string][]*regexp.Regexp
	critical   map[string]bool
}

type categoryRule struct {
	re       *regexp.Regexp
	category string
}

// NewRules compiles a classification config. Patterns were validated
// at load time; a compile failure here still surfaces as an error
// rather than a panic.
func NewRules(cls *config.Classification) (*Rules, error) {
	r := &Rules{
		parents:  make(map[string][]*regexp.Regexp),
		critical: make(map[string]bool),
	}
	if cls == nil {
		return r, nil
	}

	for _, rule := range cls.Categories {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		r.categories = append(r.categories, categoryRule{re: re, category: rule.Category})
	}

	for parent, patterns := range cls.ParentModels {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, err
			}
			r.parents[parent] = append(r.parents[parent], re)
		}
	}

	for _, name := range cls.CriticalModels {
		r.critical[name] = true
	}

	return r, nil
}

// GroupFor returns the configured category for a schema name. Rules
// are checked in configured order and the first match wins; a name
// matching several patterns therefore classifies deterministically.
func (r *Rules) GroupFor(name string) string {
	for _, rule := range r.categories {
		if rule.re.MatchString(name) {
			return rule.category
		}
	}
	return ""
}

// IsCritical reports whether a subject is on the critical-model list.
func (r *Rules) IsCritical(name string) bool {
	return r.critical[name]
}

// ChildrenOf returns the configured child-name patterns for a parent
// model, nil when the parent has no association.
func (r *Rules) ChildrenOf(parent string) []*regexp.Regexp {
	return r.parents[parent]
}

// Parents returns the parent model names with configured
// associations, in map order (callers sort).
func (r *Rules) Parents() []string {
	names := make([]string, 0, len(r.parents))
	for name := range r.parents {
		names = append(names, name)
	}
	return names
}
