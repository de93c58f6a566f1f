// Package pipeline applies one feed's filter and modify rules to its
// parsed events: filter first on original values, then text rewrites, then
// the time shift.
package pipeline

import (
	ical "github.com/arran4/golang-ical"

	"github.com/jdejaegh/ics-fusion/internal/config"
	"github.com/jdejaegh/ics-fusion/internal/model"
)

// Program is the compiled per-feed pipeline. Compilation errors (bad
// regexes, conflicting modes) surface here, before any event is touched.
type Program struct {
	filters []compiledFilter

	name        *config.TextModify
	description *config.TextModify
	location    *config.TextModify
	shift       config.TimeShift
}

// New compiles the pipeline for one resolved FeedSpec.
func New(spec config.FeedSpec) (*Program, error) {
	filters, err := compileFilters(spec.Filters)
	if err != nil {
		return nil, err
	}

	p := &Program{filters: filters}
	if m := spec.Modify; m != nil {
		p.name = m.Name
		p.description = m.Description
		p.location = m.Location
		if m.Time != nil && m.Time.Shift != nil {
			p.shift = *m.Time.Shift
		}
	}
	return p, nil
}

// Run produces the surviving, modified events of one feed. Filtering sees
// the original field values; modifications are written back into the
// underlying VEVENT so untouched properties pass through as-is.
func (p *Program) Run(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if !keep(ev, p.filters) {
			continue
		}

		p.applyText(&ev)
		p.applyShift(&ev)
		out = append(out, ev)
	}
	return out
}

func (p *Program) applyText(ev *model.Event) {
	if p.name != nil {
		ev.Summary = applyText(ev.Summary, p.name)
		ev.Raw.SetSummary(ev.Summary)
	}
	if p.description != nil {
		ev.Description = applyText(ev.Description, p.description)
		ev.Raw.SetDescription(ev.Description)
	}
	if p.location != nil {
		ev.Location = applyText(ev.Location, p.location)
		ev.Raw.SetLocation(ev.Location)
	}
}

func (p *Program) applyShift(ev *model.Event) {
	if p.shift.IsZero() {
		return
	}

	if !ev.Start.IsZero() {
		ev.Start = applyShift(ev.Start, p.shift)
		if ev.AllDay {
			ev.Raw.SetAllDayStartAt(ev.Start)
		} else {
			ev.Raw.SetStartAt(ev.Start)
		}
	}

	// Only rewrite DTEND when the source event had one; events carrying a
	// DURATION instead keep it and move with DTSTART.
	if !ev.End.IsZero() && ev.Raw.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		ev.End = applyShift(ev.End, p.shift)
		if ev.AllDay {
			ev.Raw.SetAllDayEndAt(ev.End)
		} else {
			ev.Raw.SetEndAt(ev.End)
		}
	}
}
