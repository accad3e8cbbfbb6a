package xml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/server/storage"
)

// ErrUnsupportedFilter marks filter constructs that cannot be expressed as a
// storage.ItemFilter. Servers answer them with a supported-filter precondition.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Collations understood by text-match.
const (
	CollationOctet        = "i;octet"
	CollationASCIICasemap = "i;ascii-casemap"
	// CollationUnicodeCasemap is the CardDAV default.
	CollationUnicodeCasemap = "i;unicode-casemap"
)

// Match types of a CardDAV text-match. CalDAV text-match is always a substring match.
const (
	MatchContains   = "contains"
	MatchEquals     = "equals"
	MatchStartsWith = "starts-with"
	MatchEndsWith   = "ends-with"
)

// TextMatch is a parsed <text-match> element.
type TextMatch struct {
	Collation string
	MatchType string
	Negate    bool
	Value     string
}

// ParseTextMatch reads a <text-match> element, applying defaultCollation when
// the collation attribute is absent.
func ParseTextMatch(elem *etree.Element, defaultCollation string) TextMatch {
	negate := elem.SelectAttrValue("negate-condition", "no")
	return TextMatch{
		Collation: elem.SelectAttrValue("collation", defaultCollation),
		MatchType: elem.SelectAttrValue("match-type", MatchContains),
		Negate:    negate == "yes" || negate == "true",
		Value:     elem.Text(),
	}
}

// Restriction maps the match onto a like pattern. Casemap collations compare
// case-insensitively, i;octet compares exactly.
func (tm TextMatch) Restriction() (*storage.Restriction, error) {
	var pattern string
	switch tm.MatchType {
	case MatchContains, "":
		pattern = "%" + tm.Value + "%"
	case MatchEquals:
		pattern = tm.Value
	case MatchStartsWith:
		pattern = tm.Value + "%"
	case MatchEndsWith:
		pattern = "%" + tm.Value
	default:
		return nil, fmt.Errorf("%w: match-type %q", ErrUnsupportedFilter, tm.MatchType)
	}

	switch strings.ToLower(tm.Collation) {
	case CollationASCIICasemap, CollationUnicodeCasemap:
		if tm.Negate {
			return storage.NotILike(pattern), nil
		}
		return storage.ILike(pattern), nil
	case CollationOctet:
		if tm.Negate {
			return storage.NotLike(pattern), nil
		}
		return storage.Like(pattern), nil
	default:
		return nil, fmt.Errorf("%w: collation %q", ErrUnsupportedFilter, tm.Collation)
	}
}

// PropFilter is a parsed <prop-filter> element.
type PropFilter struct {
	Name         string
	IsNotDefined bool
	TextMatches  []TextMatch
	// ParamFilters holds the names of nested param-filter elements.
	ParamFilters []string
}

// ParsePropFilter reads a <prop-filter> element.
func ParsePropFilter(elem *etree.Element, defaultCollation string) PropFilter {
	pf := PropFilter{
		Name:         strings.ToUpper(elem.SelectAttrValue("name", "")),
		IsNotDefined: Child(elem, TagIsNotDef) != nil,
	}
	for _, tm := range Children(elem, TagTextMatch) {
		pf.TextMatches = append(pf.TextMatches, ParseTextMatch(tm, defaultCollation))
	}
	for _, param := range Children(elem, "param-filter") {
		pf.ParamFilters = append(pf.ParamFilters, param.SelectAttrValue("name", ""))
	}
	return pf
}

// Restriction maps the prop-filter onto a restriction. is-not-defined becomes
// IsNull, a text-match becomes a like pattern, and an empty prop-filter, which
// only asserts that the property is defined, becomes a match-all pattern that
// excludes nulls.
func (pf PropFilter) Restriction() (*storage.Restriction, error) {
	if len(pf.ParamFilters) > 0 {
		return nil, fmt.Errorf("%w: param-filter on %s", ErrUnsupportedFilter, pf.Name)
	}
	if pf.IsNotDefined {
		return storage.IsNull(), nil
	}

	switch len(pf.TextMatches) {
	case 0:
		return storage.Like("%"), nil
	case 1:
		return pf.TextMatches[0].Restriction()
	default:
		return nil, fmt.Errorf("%w: more than one text-match on %s", ErrUnsupportedFilter, pf.Name)
	}
}
