package recurrence

import (
	"time"
)

// RecurrenceInfo contains all recurrence-related information for an event
type RecurrenceInfo struct {
	RRULE        string      // The RRULE string (without "RRULE:" prefix)
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception date-times (excluded occurrences)
	ExcludedDays []time.Time // VALUE=DATE exceptions as midnight UTC, each excludes a whole day
	RecurrenceID *time.Time  // For exception instances - which occurrence this overrides
}

// IsRecurring reports whether the info describes more than the master occurrence.
func (r RecurrenceInfo) IsRecurring() bool {
	return r.RRULE != "" || len(r.RDATE) > 0
}

// Span is the materialized extent of all occurrences of an item.
type Span struct {
	Start     time.Time // start of the earliest occurrence
	End       time.Time // end of the latest occurrence, Forever when unbounded
	Recurring bool
}

// Forever is the end of the span of an unbounded recurring event.
var Forever = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
