package query

import (
	"fmt"

	"github.com/cyp0633/caldavquery/server/storage"
)

// InvalidFilterError reports a filter tree that was constructed inconsistently,
// such as a restriction with the wrong number of operands for its operator.
// It is always a caller error and is never retried.
type InvalidFilterError struct {
	// Field names the offending part of the filter, e.g. "displayName" or "stampFilters[1]".
	Field  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter on %s: %s", e.Field, e.Reason)
}

func arityError(field string, r *storage.Restriction) error {
	return &InvalidFilterError{
		Field:  field,
		Reason: fmt.Sprintf("operator %s takes %d operand(s), got %d", r.Op, r.Op.Arity(), len(r.Operands)),
	}
}
