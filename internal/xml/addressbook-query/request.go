// Package addressbookquery parses CardDAV addressbook-query REPORT bodies.
package addressbookquery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/emersion/go-vcard"
	"github.com/samber/mo"
)

// Request is a parsed addressbook-query REPORT.
type Request struct {
	// Props are the lower-cased local names of the requested properties.
	Props []string
	// Test combines PropFilters: "anyof" (the default) or "allof".
	Test        string
	PropFilters []xml.PropFilter
	// Limit caps the number of results, zero means unlimited.
	Limit int
}

// ParseRequest parses an addressbook-query REPORT request body
func ParseRequest(xmlStr string) (*Request, error) {
	if xmlStr == "" {
		return nil, errors.New("empty XML document")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlStr); err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil || xml.LocalName(root) != "addressbook-query" {
		return nil, errors.New("missing addressbook-query root element")
	}

	req := &Request{
		Props: xml.PropNames(xml.Child(root, xml.TagProp)),
		Test:  "anyof",
	}

	if filter := xml.Child(root, xml.TagFilter); filter != nil {
		req.Test = strings.ToLower(filter.SelectAttrValue("test", "anyof"))
		for _, elem := range xml.Children(filter, xml.TagPropFilter) {
			req.PropFilters = append(req.PropFilters, xml.ParsePropFilter(elem, xml.CollationUnicodeCasemap))
		}
	}

	if limit := xml.Child(root, xml.TagLimit); limit != nil {
		if nresults := xml.Child(limit, xml.TagNResults); nresults != nil {
			n, err := strconv.Atoi(strings.TrimSpace(nresults.Text()))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid nresults %q", nresults.Text())
			}
			req.Limit = n
		}
	}

	return req, nil
}

// ItemFilter maps the request onto a card filter over collection parent. FN
// restricts the display name and UID the item UID. Constructs with no item
// filter equivalent fail with an error wrapping xml.ErrUnsupportedFilter.
func (r *Request) ItemFilter(parent int64) (*storage.ItemFilter, error) {
	filter := (&storage.ItemFilter{Parent: mo.Some(parent)}).AddStampFilter(storage.CardFilter{})

	if r.Test == "anyof" && len(r.PropFilters) > 1 {
		return nil, fmt.Errorf("%w: anyof over several prop-filters", xml.ErrUnsupportedFilter)
	}

	for _, pf := range r.PropFilters {
		var target **storage.Restriction
		switch pf.Name {
		case vcard.FieldFormattedName:
			target = &filter.DisplayName
		case vcard.FieldUID:
			target = &filter.UID
		default:
			return nil, fmt.Errorf("%w: prop-filter on %s", xml.ErrUnsupportedFilter, pf.Name)
		}
		if *target != nil {
			return nil, fmt.Errorf("%w: repeated prop-filter on %s", xml.ErrUnsupportedFilter, pf.Name)
		}

		restriction, err := pf.Restriction()
		if err != nil {
			return nil, err
		}
		*target = restriction
	}

	return filter, nil
}
