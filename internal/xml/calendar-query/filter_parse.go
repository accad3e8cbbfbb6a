package calendarquery

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
)

// Filter is a parsed <comp-filter> element and its descendants.
type Filter struct {
	Component    string
	Test         string
	IsNotDefined bool
	TimeRange    *TimeRange
	PropFilters  []xml.PropFilter
	Children     []Filter
}

// TimeRange holds the raw start and end attributes of a <time-range>. Values
// are resolved against the request time zone when the filter is mapped.
type TimeRange struct {
	Start string
	End   string
}

// ParseFilterElement parses a <filter> element into a Filter structure
func ParseFilterElement(filterElem *etree.Element) *Filter {
	if filterElem == nil {
		return nil
	}

	compFilter := xml.Child(filterElem, xml.TagCompFilter)
	if compFilter == nil {
		return nil
	}

	// The outermost comp-filter should be VCALENDAR
	filter := parseCompFilter(compFilter)
	return &filter
}

// parseCompFilter recursively parses a comp-filter element
func parseCompFilter(compFilterElem *etree.Element) Filter {
	filter := Filter{
		Component: strings.ToUpper(compFilterElem.SelectAttrValue("name", "")),
		Test:      compFilterElem.SelectAttrValue("test", "allof"),
	}

	if xml.Child(compFilterElem, xml.TagIsNotDef) != nil {
		filter.IsNotDefined = true
		return filter // If is-not-defined is present, other elements should not be
	}

	if timeRangeElem := xml.Child(compFilterElem, xml.TagTimeRange); timeRangeElem != nil {
		filter.TimeRange = &TimeRange{
			Start: timeRangeElem.SelectAttrValue("start", ""),
			End:   timeRangeElem.SelectAttrValue("end", ""),
		}
	}

	for _, propFilterElem := range xml.Children(compFilterElem, xml.TagPropFilter) {
		filter.PropFilters = append(filter.PropFilters, xml.ParsePropFilter(propFilterElem, xml.CollationASCIICasemap))
	}

	for _, nestedElem := range xml.Children(compFilterElem, xml.TagCompFilter) {
		filter.Children = append(filter.Children, parseCompFilter(nestedElem))
	}

	return filter
}
