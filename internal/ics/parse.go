package ics

import (
	"bytes"
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
	appLog "github.com/jdejaegh/ics-fusion/internal/log"
	"github.com/jdejaegh/ics-fusion/internal/model"
)

// Parse parses a raw ICS payload into the engine's event representation.
// Components other than VEVENT are dropped. Individual events that cannot be
// parsed are logged and skipped; a payload that is not a calendar at all is a
// parse error.
func Parse(source string, body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, apperr.NewFeedParse(source, errors.New("empty ICS body"))
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.NewFeedParse(source, err)
	}

	events := make([]model.Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(source, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "source", source)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "source", source, "event_count", len(events))
	return events, nil
}

func parseVEvent(source string, ve *ical.VEvent) (model.Event, error) {
	var out model.Event
	out.Source = source
	out.Raw = ve

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	out.AllDay = isAllDay(ve)

	// DTSTART / DTEND via the library's timezone-aware helpers. A missing
	// DTEND stays zero and is left untouched downstream.
	if out.AllDay {
		out.Start, _ = ve.GetAllDayStartAt()
		out.End, _ = ve.GetAllDayEndAt()
	} else {
		out.Start, _ = ve.GetStartAt()
		out.End, _ = ve.GetEndAt()
	}

	return out, nil
}

// isAllDay reports whether DTSTART carries VALUE=DATE or a date-only value.
func isAllDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if params := prop.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(prop.Value, "T")
}
