package recurrence

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an iCal component
func ExtractRecurrenceInfoFromComponent(comp *ical.Component) RecurrenceInfo {
	info := RecurrenceInfo{}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		info.RRULE = prop.Value
	}

	// RDATE and EXDATE may repeat; each occurrence can carry a list
	for _, prop := range comp.Props.Values(ical.PropRecurrenceDates) {
		info.RDATE = append(info.RDATE, parseDateList(&prop)...)
	}
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		if isDateValue(&prop) {
			info.ExcludedDays = append(info.ExcludedDays, parseDateList(&prop)...)
		} else {
			info.EXDATE = append(info.EXDATE, parseDateList(&prop)...)
		}
	}

	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil && prop.Value != "" {
		if ids := parseDateList(prop); len(ids) > 0 {
			info.RecurrenceID = &ids[0]
		}
	}

	return info
}

// ExtractBasicTimeInfoFromComponent extracts start and end times from an iCal component
func ExtractBasicTimeInfoFromComponent(comp *ical.Component) (start, end time.Time, hasTime bool) {
	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		dtstart, err := prop.DateTime(time.UTC)
		if err == nil {
			start = dtstart
			hasTime = true
			allDay := isDateValue(prop)

			if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
				if dtend, err := endProp.DateTime(time.UTC); err == nil {
					end = dtend
					// An all-day DTEND equal to DTSTART still covers that day
					if allDay && !end.After(start) {
						end = start.AddDate(0, 0, 1)
					}
				} else {
					hasTime = false
					return
				}
			} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
				duration, err := durationProp.Duration()
				if err != nil {
					hasTime = false
					return
				}
				end = start.Add(duration)
			} else if allDay {
				end = start.AddDate(0, 0, 1)
			} else {
				// instantaneous
				end = start
			}
		}
	}

	if comp.Name == ical.CompToDo {
		if prop := comp.Props.Get(ical.PropDue); prop != nil {
			if due, err := prop.DateTime(time.UTC); err == nil {
				if !hasTime {
					start, end, hasTime = due, due, true
				} else if due.After(end) {
					end = due
				}
			}
		}
	}

	return start, end, hasTime
}

// parseDateList parses a comma separated DATE or DATE-TIME list, honouring TZID.
// Date-only values are stored as midnight UTC.
func parseDateList(prop *ical.Prop) []time.Time {
	if prop == nil || prop.Value == "" {
		return nil
	}

	loc := time.UTC
	if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}

	var out []time.Time
	for _, s := range strings.Split(prop.Value, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if t, err := parseDateTime(s, loc); err == nil {
			out = append(out, t)
		}
	}
	return out
}

func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse("20060102T150405Z", s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("20060102T150405", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// isDateValue reports whether the property holds a DATE rather than a DATE-TIME.
func isDateValue(prop *ical.Prop) bool {
	return strings.EqualFold(prop.Params.Get(ical.ParamValue), string(ical.ValueDate)) ||
		(len(prop.Value) == 8 && !strings.Contains(prop.Value, "T"))
}
