package ics

import (
	ical "github.com/arran4/golang-ical"

	"github.com/jdejaegh/ics-fusion/internal/model"
)

// Build assembles the merged calendar document from the surviving events of
// all feeds, in the order given. Events keep every property of their source
// VEVENT except nested alarms; no component other than VEVENT is emitted.
func Build(name string, events []model.Event) string {
	cal := ical.NewCalendar()
	cal.SetProductId("-//ics-fusion//calendar merge//EN")
	cal.SetXWRCalName(name)

	for _, ev := range events {
		stripAlarms(ev.Raw)
		cal.AddVEvent(ev.Raw)
	}

	return cal.Serialize()
}

func stripAlarms(ve *ical.VEvent) {
	if len(ve.Components) == 0 {
		return
	}
	kept := make([]ical.Component, 0, len(ve.Components))
	for _, c := range ve.Components {
		if _, isAlarm := c.(*ical.VAlarm); isAlarm {
			continue
		}
		kept = append(kept, c)
	}
	ve.Components = kept
}
