package memory

import (
	"regexp"
	"strings"
	"time"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/cyp0633/caldavquery/server/storage/query"
)

// matcher evaluates a validated filter against stored items with the same
// semantics as the translated query text, including SQL null handling:
// an absent field only satisfies IsNull.
//
// Every type predicate in the query text shares the one type binding, which
// holds the tag of the last stamp filter that set it. typeTag is that value,
// so a filter mixing stamp kinds matches what the database would return.
type matcher struct {
	filter         *storage.ItemFilter
	discriminators storage.Discriminators
	typeTag        string
}

// newMatcher builds a matcher for filter using the bindings of its translation q.
func newMatcher(filter *storage.ItemFilter, q query.Query, d storage.Discriminators) *matcher {
	m := &matcher{filter: filter, discriminators: d}
	if v, ok := q.Lookup(query.BindType); ok {
		m.typeTag, _ = v.(string)
	}
	return m
}

func (m *matcher) match(item *storage.Item) bool {
	f := m.filter
	if parent, ok := f.Parent.Get(); ok && item.CollectionID != parent {
		return false
	}

	var displayName any
	if item.DisplayName != "" {
		displayName = item.DisplayName
	}
	if !restrict(f.DisplayName, displayName) {
		return false
	}

	for _, sf := range f.StampFilters {
		if !m.stamp(sf, item) {
			return false
		}
	}

	if !restrict(f.UID, item.UID) {
		return false
	}
	return restrict(f.ModifiedSince, item.Modified)
}

func (m *matcher) stamp(sf storage.StampFilter, item *storage.Item) bool {
	tag := m.discriminators[item.Kind]

	switch f := sf.(type) {
	case storage.GenericFilter:
		if f.Marker == storage.KindItem {
			return true
		}
		if f.Missing {
			return tag != "" && tag != m.typeTag
		}
		return tag != "" && tag == m.typeTag
	case storage.EventFilter:
		if tag == "" || tag != m.typeTag {
			return false
		}
		if recurring, ok := f.Recurring.Get(); ok && item.Recurring != recurring {
			return false
		}
		if period, ok := f.Period.Get(); ok {
			if item.StartDate == nil || item.EndDate == nil {
				return false
			}
			return query.Overlaps(*item.StartDate, *item.EndDate, period)
		}
		return true
	default:
		return tag != "" && tag == m.typeTag
	}
}

// restrict applies r to value. A nil value stands for a null column.
func restrict(r *storage.Restriction, value any) bool {
	if r == nil {
		return true
	}
	if r.Op == storage.OpIsNull {
		return value == nil
	}
	if value == nil {
		return false
	}

	switch r.Op {
	case storage.OpEq:
		c, ok := compare(value, r.Operands[0])
		return ok && c == 0
	case storage.OpNeq:
		c, ok := compare(value, r.Operands[0])
		return ok && c != 0
	case storage.OpLike:
		return like(value, r.Operands[0], false)
	case storage.OpNotLike:
		return !like(value, r.Operands[0], false)
	case storage.OpILike:
		return like(value, r.Operands[0], true)
	case storage.OpNotILike:
		return !like(value, r.Operands[0], true)
	case storage.OpBetween:
		lo, ok1 := compare(value, r.Operands[0])
		hi, ok2 := compare(value, r.Operands[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0
	}
	return false
}

// compare orders a against b. ok is false when the values are not comparable.
func compare(a, b any) (c int, ok bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// like matches value against an SQL pattern where % is any run and _ is
// any single character.
func like(value, pattern any, fold bool) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	p, ok := pattern.(string)
	if !ok {
		return false
	}
	if fold {
		s, p = strings.ToLower(s), strings.ToLower(p)
	}
	return likePattern(p).MatchString(s)
}

func likePattern(p string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for _, r := range p {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}
