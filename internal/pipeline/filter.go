package pipeline

import (
	"regexp"

	"github.com/jdejaegh/ics-fusion/internal/config"
	"github.com/jdejaegh/ics-fusion/internal/model"
)

type filterMode int

const (
	modeExclude filterMode = iota
	modeIncludeOnly
)

type filterField int

const (
	fieldName filterField = iota
	fieldDescription
)

// compiledFilter is one regex rule bound to a field, compiled once at
// resolution time.
type compiledFilter struct {
	field   filterField
	mode    filterMode
	pattern *regexp.Regexp
}

func compileFilters(set *config.FilterSet) ([]compiledFilter, error) {
	if set == nil {
		return nil, nil
	}

	var out []compiledFilter
	for _, fr := range []struct {
		field filterField
		rule  *config.FilterRule
	}{
		{fieldName, set.Name},
		{fieldDescription, set.Description},
	} {
		if fr.rule == nil {
			continue
		}
		pattern, err := fr.rule.Compile()
		if err != nil {
			return nil, err
		}
		if pattern == nil {
			// Neither exclude nor includeOnly set: no constraint.
			continue
		}
		mode := modeExclude
		if fr.rule.IncludeOnly != nil {
			mode = modeIncludeOnly
		}
		out = append(out, compiledFilter{field: fr.field, mode: mode, pattern: pattern})
	}
	return out, nil
}

// keep evaluates every compiled rule against the event's original field
// values. The event survives only if it passes all of them.
func keep(ev model.Event, filters []compiledFilter) bool {
	for _, f := range filters {
		value := ev.Summary
		if f.field == fieldDescription {
			value = ev.Description
		}

		matched := f.pattern.MatchString(value)
		switch f.mode {
		case modeExclude:
			if matched {
				return false
			}
		case modeIncludeOnly:
			if !matched {
				return false
			}
		}
	}
	return true
}
