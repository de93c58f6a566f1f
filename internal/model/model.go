package model

import (
	"time"

	ical "github.com/arran4/golang-ical"
)

// Event is the engine's view of a single VEVENT. Only the fields the
// filter/modify pipeline inspects are lifted out; everything else stays on
// Raw and passes through to the merged document unchanged.
type Event struct {
	Source string // FeedSpec name this event came from
	UID    string

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	// Raw is the parsed VEVENT backing this event. The pipeline writes
	// modified fields back into it before the event is emitted.
	Raw *ical.VEvent
}
