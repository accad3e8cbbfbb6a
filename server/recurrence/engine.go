package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Engine materializes the time extent of recurring items so that stores can
// answer time-range queries from two stored instants.
type Engine struct {
	config EngineConfig
}

// NewEngine creates a new recurrence engine instance
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Span computes the extent of all occurrences of an item whose master
// occurrence is [masterStart, masterEnd). Every occurrence has the master's
// duration. Rules without COUNT or UNTIL, or with more than MaxOccurrences
// occurrences, end at Forever.
func (e *Engine) Span(masterStart, masterEnd time.Time, recurrence RecurrenceInfo) (Span, error) {
	if !recurrence.IsRecurring() {
		return Span{Start: masterStart, End: masterEnd}, nil
	}

	duration := masterEnd.Sub(masterStart)
	starts := []time.Time{masterStart}
	unbounded := false

	if recurrence.RRULE != "" {
		occurrences, complete, err := e.expandRRule(masterStart, recurrence.RRULE)
		if err != nil {
			return Span{}, fmt.Errorf("failed to expand RRULE: %w", err)
		}
		starts = append(starts, occurrences...)
		unbounded = !complete
	}
	starts = append(starts, recurrence.RDATE...)

	span := Span{Recurring: true}
	found := false
	for _, start := range starts {
		if e.isExcluded(start, recurrence) {
			continue
		}
		end := start.Add(duration)
		if !found || start.Before(span.Start) {
			span.Start = start
		}
		if !found || end.After(span.End) {
			span.End = end
		}
		found = true
	}

	// every occurrence excluded: keep the master so the item stays addressable
	if !found {
		span.Start, span.End = masterStart, masterEnd
	}
	if unbounded {
		span.End = Forever
	}
	return span, nil
}

// expandRRule returns up to MaxOccurrences occurrence starts and whether the
// rule was fully enumerated.
func (e *Engine) expandRRule(masterStart time.Time, rruleStr string) ([]time.Time, bool, error) {
	if !isBounded(rruleStr) {
		return nil, false, validateRRule(masterStart, rruleStr)
	}

	set, err := parseRRuleSet(masterStart, rruleStr)
	if err != nil {
		return nil, false, err
	}

	var occurrences []time.Time
	next := set.Iterator()
	for {
		t, ok := next()
		if !ok {
			return occurrences, true, nil
		}
		if len(occurrences) == e.config.MaxOccurrences {
			return occurrences, false, nil
		}
		occurrences = append(occurrences, t)
	}
}

func parseRRuleSet(masterStart time.Time, rruleStr string) (*rrule.Set, error) {
	dtstart := masterStart.UTC().Format("20060102T150405Z")
	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, rruleStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", rruleStr, err)
	}
	return set, nil
}

func validateRRule(masterStart time.Time, rruleStr string) error {
	_, err := parseRRuleSet(masterStart, rruleStr)
	return err
}

// isBounded reports whether the rule terminates on its own.
func isBounded(rruleStr string) bool {
	upper := strings.ToUpper(rruleStr)
	return strings.Contains(upper, "COUNT=") || strings.Contains(upper, "UNTIL=")
}

// isExcluded reports whether t is an excluded date-time or falls on an
// excluded day.
func (e *Engine) isExcluded(t time.Time, recurrence RecurrenceInfo) bool {
	for _, exdate := range recurrence.EXDATE {
		if t.Equal(exdate) {
			return true
		}
	}
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	for _, d := range recurrence.ExcludedDays {
		if day.Equal(d) {
			return true
		}
	}
	return false
}
