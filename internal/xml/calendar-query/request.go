// Package calendarquery parses CalDAV calendar-query REPORT bodies and maps
// their filters onto storage item filters.
package calendarquery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
	"github.com/cyp0633/caldavquery/server/recurrence"
	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// Request is a parsed calendar-query REPORT.
type Request struct {
	// Props are the lower-cased local names of the requested properties.
	Props  []string
	Filter *Filter
	// Timezone resolves floating time-range values. It defaults to UTC.
	Timezone *time.Location
}

// ParseRequest parses a calendar-query REPORT request body
func ParseRequest(xmlStr string) (*Request, error) {
	if xmlStr == "" {
		return nil, errors.New("empty XML document")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil || xml.LocalName(root) != "calendar-query" {
		return nil, errors.New("missing calendar-query root element")
	}

	req := &Request{
		Props:    xml.PropNames(xml.Child(root, xml.TagProp)),
		Filter:   ParseFilterElement(xml.Child(root, xml.TagFilter)),
		Timezone: time.UTC,
	}
	if tz := xml.Child(root, xml.TagTimezone); tz != nil {
		req.Timezone = parseTimezone(tz.Text())
	}

	return req, nil
}

// parseTimezone reads the TZID of the first VTIMEZONE in an iCalendar object.
// Unknown zones fall back to UTC.
func parseTimezone(data string) *time.Location {
	cal, err := ical.NewDecoder(strings.NewReader(strings.TrimSpace(data) + "\r\n")).Decode()
	if err != nil {
		return time.UTC
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		prop := child.Props.Get(ical.PropTimezoneID)
		if prop == nil {
			continue
		}
		if loc, err := time.LoadLocation(prop.Value); err == nil {
			return loc
		}
	}
	return time.UTC
}

// ItemFilter maps the request filter onto an item filter over collection
// parent. Constructs with no item filter equivalent fail with an error
// wrapping xml.ErrUnsupportedFilter.
func (r *Request) ItemFilter(parent int64) (*storage.ItemFilter, error) {
	filter := &storage.ItemFilter{Parent: mo.Some(parent)}
	if r.Filter == nil {
		return filter, nil
	}

	root := r.Filter
	if root.Component != ical.CompCalendar {
		return nil, fmt.Errorf("%w: outermost comp-filter must be VCALENDAR, got %q", xml.ErrUnsupportedFilter, root.Component)
	}
	if root.IsNotDefined {
		return nil, fmt.Errorf("%w: VCALENDAR is-not-defined", xml.ErrUnsupportedFilter)
	}
	if root.TimeRange != nil || len(root.PropFilters) > 0 {
		return nil, fmt.Errorf("%w: VCALENDAR accepts only component filters", xml.ErrUnsupportedFilter)
	}

	switch len(root.Children) {
	case 0:
		return filter, nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: more than one component filter", xml.ErrUnsupportedFilter)
	}

	comp := root.Children[0]
	kind, ok := componentKinds[comp.Component]
	if !ok {
		return nil, fmt.Errorf("%w: component %q", xml.ErrUnsupportedFilter, comp.Component)
	}
	if comp.IsNotDefined {
		return filter.AddStampFilter(storage.GenericFilter{Marker: kind, Missing: true}), nil
	}
	if len(comp.Children) > 0 {
		return nil, fmt.Errorf("%w: nested component filter in %s", xml.ErrUnsupportedFilter, comp.Component)
	}

	switch kind {
	case storage.KindEvent:
		ef := storage.EventFilter{Timezone: r.Timezone}
		if comp.TimeRange != nil {
			period, err := comp.TimeRange.resolve(r.Timezone)
			if err != nil {
				return nil, err
			}
			ef.Period = mo.Some(period)
		}
		filter.AddStampFilter(ef)
	case storage.KindTodo, storage.KindJournal:
		if comp.TimeRange != nil {
			return nil, fmt.Errorf("%w: time-range on %s", xml.ErrUnsupportedFilter, comp.Component)
		}
		if kind == storage.KindTodo {
			filter.AddStampFilter(storage.TodoFilter{})
		} else {
			filter.AddStampFilter(storage.JournalFilter{})
		}
	}

	if comp.Test == "anyof" && len(comp.PropFilters) > 1 {
		return nil, fmt.Errorf("%w: anyof over several prop-filters", xml.ErrUnsupportedFilter)
	}
	for _, pf := range comp.PropFilters {
		if err := applyPropFilter(filter, pf); err != nil {
			return nil, err
		}
	}

	return filter, nil
}

var componentKinds = map[string]storage.Kind{
	ical.CompEvent:   storage.KindEvent,
	ical.CompToDo:    storage.KindTodo,
	ical.CompJournal: storage.KindJournal,
}

func applyPropFilter(filter *storage.ItemFilter, pf xml.PropFilter) error {
	var target **storage.Restriction
	switch pf.Name {
	case ical.PropSummary:
		target = &filter.DisplayName
	case ical.PropUID:
		target = &filter.UID
	default:
		return fmt.Errorf("%w: prop-filter on %s", xml.ErrUnsupportedFilter, pf.Name)
	}
	if *target != nil {
		return fmt.Errorf("%w: repeated prop-filter on %s", xml.ErrUnsupportedFilter, pf.Name)
	}

	r, err := pf.Restriction()
	if err != nil {
		return err
	}
	*target = r
	return nil
}

// resolve converts the raw range to absolute instants. A missing start is
// unbounded in the past and a missing end unbounded in the future.
func (tr *TimeRange) resolve(loc *time.Location) (storage.TimeRange, error) {
	if tr.Start == "" && tr.End == "" {
		return storage.TimeRange{}, errors.New("time-range needs a start or an end")
	}

	period := storage.TimeRange{Start: time.Time{}, End: recurrence.Forever}
	if tr.Start != "" {
		start, err := parseDateTime(tr.Start, loc)
		if err != nil {
			return storage.TimeRange{}, fmt.Errorf("invalid time-range start: %w", err)
		}
		period.Start = start
	}
	if tr.End != "" {
		end, err := parseDateTime(tr.End, loc)
		if err != nil {
			return storage.TimeRange{}, fmt.Errorf("invalid time-range end: %w", err)
		}
		period.End = end
	}
	return period, nil
}

// parseDateTime accepts UTC and floating DATE-TIME values and DATE values.
// Floating values are placed in loc.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse("20060102T150405Z", s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("20060102T150405", s, loc); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("20060102", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date-time %q", s)
	}
	return t.UTC(), nil
}
