package query

import "strconv"

// Fixed binding names. Callers may rely on them without inspecting query text.
const (
	BindParent    = "parent"
	BindType      = "type"
	BindRecurring = "recurring"
	BindStartDate = "startDate"
	BindEndDate   = "endDate"
)

const positionalPrefix = "param"

// Binding is a named placeholder value substituted into query text at execution time.
type Binding struct {
	Name  string
	Value any
}

// Allocator hands out binding names for a single translation.
//
// Semantic constructs use fixed names (see the Bind constants). Free-form
// restriction operands get positional names param0, param1, ... where the
// number is the count of distinct names bound so far, fixed ones included.
// So a parent binding followed by a display name restriction yields param1.
//
// An Allocator is not safe for concurrent use; create one per translation.
type Allocator struct {
	bindings []Binding
	index    map[string]int
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{index: make(map[string]int)}
}

// Fixed binds value under name and returns name. Binding a name again keeps
// its original position and replaces the value.
func (a *Allocator) Fixed(name string, value any) string {
	if i, ok := a.index[name]; ok {
		a.bindings[i].Value = value
		return name
	}
	a.index[name] = len(a.bindings)
	a.bindings = append(a.bindings, Binding{Name: name, Value: value})
	return name
}

// Positional binds value under the next positional name and returns it.
func (a *Allocator) Positional(value any) string {
	return a.Fixed(positionalPrefix+strconv.Itoa(len(a.bindings)), value)
}

// Bindings returns the bindings in the order their names were first allocated.
func (a *Allocator) Bindings() []Binding {
	out := make([]Binding, len(a.bindings))
	copy(out, a.bindings)
	return out
}
