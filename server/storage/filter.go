package storage

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Operator is the comparison a Restriction applies to one field.
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpLike
	OpNotLike
	OpILike    // case-insensitive like
	OpNotILike // case-insensitive not like
	OpIsNull
	OpBetween
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpNeq:
		return "neq"
	case OpLike:
		return "like"
	case OpNotLike:
		return "not-like"
	case OpILike:
		return "ilike"
	case OpNotILike:
		return "not-ilike"
	case OpIsNull:
		return "is-null"
	case OpBetween:
		return "between"
	default:
		return fmt.Sprintf("operator(%d)", int(o))
	}
}

// Arity is the number of operands the operator takes.
func (o Operator) Arity() int {
	switch o {
	case OpIsNull:
		return 0
	case OpBetween:
		return 2
	default:
		return 1
	}
}

// Restriction pairs an operator with its operand values.
type Restriction struct {
	Op       Operator
	Operands []any
}

func Eq(v any) *Restriction       { return &Restriction{Op: OpEq, Operands: []any{v}} }
func Neq(v any) *Restriction      { return &Restriction{Op: OpNeq, Operands: []any{v}} }
func Like(v any) *Restriction     { return &Restriction{Op: OpLike, Operands: []any{v}} }
func NotLike(v any) *Restriction  { return &Restriction{Op: OpNotLike, Operands: []any{v}} }
func ILike(v any) *Restriction    { return &Restriction{Op: OpILike, Operands: []any{v}} }
func NotILike(v any) *Restriction { return &Restriction{Op: OpNotILike, Operands: []any{v}} }
func IsNull() *Restriction        { return &Restriction{Op: OpIsNull} }

// Between matches lo <= value <= hi. lo <= hi is not checked.
func Between(lo, hi any) *Restriction {
	return &Restriction{Op: OpBetween, Operands: []any{lo, hi}}
}

// TimeRange is a half-open [Start, End) period of absolute instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// StampFilter narrows matches to items carrying one semantic facet.
//
// The set of variants is closed: GenericFilter, EventFilter, TodoFilter,
// JournalFilter and CardFilter.
type StampFilter interface {
	Kind() Kind
	stampFilter()
}

// GenericFilter matches the presence (or, with Missing, the absence) of a kind.
// A GenericFilter over KindItem matches every item; combined with Missing it
// is rejected as invalid.
type GenericFilter struct {
	Marker  Kind
	Missing bool
}

// EventFilter matches event items.
type EventFilter struct {
	// Period must already be normalized to absolute instants; see Timezone.
	Period mo.Option[TimeRange]
	// Timezone is the zone the period was expressed in by the client. It is
	// informational only, conversion happens when the filter is built.
	Timezone  *time.Location
	Recurring mo.Option[bool]
}

type TodoFilter struct{}

type JournalFilter struct{}

type CardFilter struct{}

func (f GenericFilter) Kind() Kind { return f.Marker }
func (EventFilter) Kind() Kind     { return KindEvent }
func (TodoFilter) Kind() Kind      { return KindTodo }
func (JournalFilter) Kind() Kind   { return KindJournal }
func (CardFilter) Kind() Kind      { return KindCard }

func (GenericFilter) stampFilter() {}
func (EventFilter) stampFilter()   {}
func (TodoFilter) stampFilter()    {}
func (JournalFilter) stampFilter() {}
func (CardFilter) stampFilter()    {}

// ItemFilter is the root of a filter tree. A zero ItemFilter matches every item.
type ItemFilter struct {
	// Parent restricts matches to members of one collection.
	Parent        mo.Option[int64]
	DisplayName   *Restriction
	UID           *Restriction
	ModifiedSince *Restriction
	// StampFilters are applied in order; the order also decides parameter numbering.
	StampFilters []StampFilter
}

// AddStampFilter appends f and returns the filter for chaining.
func (f *ItemFilter) AddStampFilter(sf StampFilter) *ItemFilter {
	f.StampFilters = append(f.StampFilters, sf)
	return f
}
