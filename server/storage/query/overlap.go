package query

import (
	"time"

	"github.com/cyp0633/caldavquery/server/storage"
)

// overlapPredicate matches items whose [startDate, endDate) overlaps the bound
// range. The second disjunct also matches zero-duration items that sit exactly
// on either boundary, which strict overlap would reject.
const overlapPredicate = "( (i.startDate < :endDate) and i.endDate > :startDate ) " +
	"or ( i.startDate = i.endDate and (i.startDate = :startDate or i.startDate = :endDate) )"

// Overlap binds the range to startDate/endDate and returns the time-range
// predicate. The range must already be in absolute instants.
//
// The predicate contains a top-level "or"; callers conjoining it with other
// predicates must parenthesize it.
func Overlap(r storage.TimeRange, a *Allocator) string {
	a.Fixed(BindStartDate, r.Start)
	a.Fixed(BindEndDate, r.End)
	return overlapPredicate
}

// Overlaps evaluates the same predicate in memory for an item spanning
// [start, end) against r. Stores that do not speak the query text use it to
// keep identical boundary semantics.
func Overlaps(start, end time.Time, r storage.TimeRange) bool {
	if start.Before(r.End) && end.After(r.Start) {
		return true
	}
	return start.Equal(end) && (start.Equal(r.Start) || start.Equal(r.End))
}
