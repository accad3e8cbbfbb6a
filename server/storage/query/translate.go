// Package query compiles an item filter tree into a parameterized object query.
//
// The produced text has the shape
//
//	select i from <Entity> i [join i.collection pd] [where <p1> and <p2> ...]
//
// and is accompanied by an ordered list of named bindings. Translation is a
// pure function of the filter and the translator's configuration: the same
// tree always yields byte-identical text and binding names, so callers may
// cache prepared statements keyed by the text.
//
// Predicates are emitted in a fixed order:
//
//  1. parent collection (pd.id=:parent)
//  2. display name restriction
//  3. stamp filters, in the order they were added
//  4. uid restriction
//  5. modified-since restriction
package query

import (
	"fmt"
	"strings"

	"github.com/cyp0633/caldavquery/server/storage"
)

// DefaultEntity is the item entity name used in the select clause.
const DefaultEntity = "Item"

// Item field paths referenced by generated predicates.
const (
	fieldUID          = "i.uid"
	fieldDisplayName  = "i.displayName"
	fieldModifiedDate = "i.modifiedDate"
	fieldType         = "i.type"
	fieldRecurring    = "i.recurring"
	fieldParentID     = "pd.id"
)

// Query is translated query text plus the values for its named placeholders.
type Query struct {
	Text     string
	Bindings []Binding
}

// Lookup returns the value bound to name.
func (q Query) Lookup(name string) (any, bool) {
	for _, b := range q.Bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

func (q Query) String() string {
	return q.Text
}

// Translator turns filter trees into queries. It holds only read-only
// configuration and is safe for concurrent use.
type Translator struct {
	entity         string
	discriminators storage.Discriminators
}

// Option configures a Translator.
type Option func(*Translator)

// WithEntity sets the entity name in the select clause.
func WithEntity(name string) Option {
	return func(t *Translator) {
		t.entity = name
	}
}

// WithDiscriminators sets the stamp kind to type tag table. The table is copied.
func WithDiscriminators(d storage.Discriminators) Option {
	return func(t *Translator) {
		t.discriminators = d.Clone()
	}
}

// NewTranslator creates a translator using DefaultEntity and
// storage.DefaultDiscriminators unless overridden.
func NewTranslator(opts ...Option) *Translator {
	t := &Translator{
		entity:         DefaultEntity,
		discriminators: storage.DefaultDiscriminators(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Entity returns the entity name used in the select clause.
func (t *Translator) Entity() string {
	return t.entity
}

// translation is the state of one Translate call.
type translation struct {
	join  bool
	where []string
	alloc *Allocator
}

func (tr *translation) appendWhere(predicate string) {
	tr.where = append(tr.where, predicate)
}

// Translate compiles filter into a Query. A nil filter matches every item.
// It fails with *InvalidFilterError when a restriction has the wrong number
// of operands or a stamp filter's kind has no discriminator.
func (t *Translator) Translate(filter *storage.ItemFilter) (Query, error) {
	if filter == nil {
		filter = &storage.ItemFilter{}
	}

	tr := &translation{alloc: NewAllocator()}

	if parent, ok := filter.Parent.Get(); ok {
		tr.join = true
		tr.appendWhere(fieldParentID + "=:" + tr.alloc.Fixed(BindParent, parent))
	}

	if err := tr.restriction("displayName", fieldDisplayName, filter.DisplayName); err != nil {
		return Query{}, err
	}

	for i, sf := range filter.StampFilters {
		if err := t.stampFilter(tr, fmt.Sprintf("stampFilters[%d]", i), sf); err != nil {
			return Query{}, err
		}
	}

	if err := tr.restriction("uid", fieldUID, filter.UID); err != nil {
		return Query{}, err
	}
	if err := tr.restriction("modifiedSince", fieldModifiedDate, filter.ModifiedSince); err != nil {
		return Query{}, err
	}

	var sb strings.Builder
	sb.WriteString("select i from ")
	sb.WriteString(t.entity)
	sb.WriteString(" i")
	if tr.join {
		sb.WriteString(" join i.collection pd")
	}
	if len(tr.where) > 0 {
		sb.WriteString(" where ")
		sb.WriteString(strings.Join(tr.where, " and "))
	}

	return Query{Text: sb.String(), Bindings: tr.alloc.Bindings()}, nil
}

func (t *Translator) stampFilter(tr *translation, name string, sf storage.StampFilter) error {
	switch f := sf.(type) {
	case storage.GenericFilter:
		if f.Marker == storage.KindItem {
			if f.Missing {
				return &InvalidFilterError{Field: name, Reason: "every item carries the base kind, it cannot be missing"}
			}
			return nil
		}
		tag, err := t.discriminator(name, f.Marker)
		if err != nil {
			return err
		}
		op := "="
		if f.Missing {
			op = "!="
		}
		tr.appendWhere(fieldType + op + ":" + tr.alloc.Fixed(BindType, tag))
	case storage.EventFilter:
		if err := t.typePredicate(tr, name, storage.KindEvent); err != nil {
			return err
		}
		if recurring, ok := f.Recurring.Get(); ok {
			tr.appendWhere("(" + fieldRecurring + "=:" + tr.alloc.Fixed(BindRecurring, recurring) + ")")
		}
		if period, ok := f.Period.Get(); ok {
			tr.appendWhere("(" + Overlap(period, tr.alloc) + ")")
		}
	case storage.TodoFilter, storage.JournalFilter, storage.CardFilter:
		return t.typePredicate(tr, name, f.Kind())
	default:
		return &InvalidFilterError{Field: name, Reason: fmt.Sprintf("unsupported stamp filter %T", sf)}
	}
	return nil
}

func (t *Translator) typePredicate(tr *translation, name string, kind storage.Kind) error {
	tag, err := t.discriminator(name, kind)
	if err != nil {
		return err
	}
	tr.appendWhere(fieldType + "=:" + tr.alloc.Fixed(BindType, tag))
	return nil
}

func (t *Translator) discriminator(name string, kind storage.Kind) (string, error) {
	tag, ok := t.discriminators[kind]
	if !ok {
		return "", &InvalidFilterError{Field: name, Reason: fmt.Sprintf("no discriminator for kind %s", kind)}
	}
	return tag, nil
}

// restriction emits the predicate for r on field. A nil r emits nothing.
func (tr *translation) restriction(name, field string, r *storage.Restriction) error {
	if r == nil {
		return nil
	}
	if len(r.Operands) != r.Op.Arity() {
		return arityError(name, r)
	}

	switch r.Op {
	case storage.OpEq:
		tr.appendWhere(field + "=:" + tr.alloc.Positional(r.Operands[0]))
	case storage.OpNeq:
		tr.appendWhere(field + "!=:" + tr.alloc.Positional(r.Operands[0]))
	case storage.OpLike:
		tr.appendWhere(field + " like :" + tr.alloc.Positional(r.Operands[0]))
	case storage.OpNotLike:
		tr.appendWhere(field + " not like :" + tr.alloc.Positional(r.Operands[0]))
	case storage.OpILike:
		tr.appendWhere("lower(" + field + ") like :" + tr.alloc.Positional(lower(r.Operands[0])))
	case storage.OpNotILike:
		tr.appendWhere("lower(" + field + ") not like :" + tr.alloc.Positional(lower(r.Operands[0])))
	case storage.OpIsNull:
		tr.appendWhere(field + " is null")
	case storage.OpBetween:
		lo := tr.alloc.Positional(r.Operands[0])
		hi := tr.alloc.Positional(r.Operands[1])
		tr.appendWhere(field + " between :" + lo + " and :" + hi)
	default:
		return &InvalidFilterError{Field: name, Reason: fmt.Sprintf("unknown operator %s", r.Op)}
	}
	return nil
}

// lower folds string operands so that lower(field) comparisons are
// case-insensitive on both sides. Other values pass through.
func lower(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return v
}
