package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause, e.g. a *query.InvalidFilterError.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	e, ok := err.(*Error)
	return ok && e.Type == t
}

// Kind is the semantic facet ("stamp") an item carries.
type Kind int

const (
	// KindItem is the base item. It has no discriminator of its own.
	KindItem Kind = iota
	KindEvent
	KindTodo
	KindJournal
	KindCard
)

// String provides a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindEvent:
		return "event"
	case KindTodo:
		return "todo"
	case KindJournal:
		return "journal"
	case KindCard:
		return "card"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Discriminators maps a stamp kind to the tag stored in the item type column.
// Stores and the query translator must be given the same table.
type Discriminators map[Kind]string

// DefaultDiscriminators returns a fresh copy of the standard tag table.
func DefaultDiscriminators() Discriminators {
	return Discriminators{
		KindEvent:   "event",
		KindTodo:    "todo",
		KindJournal: "journal",
		KindCard:    "card",
	}
}

// Clone returns an independent copy of d.
func (d Discriminators) Clone() Discriminators {
	out := make(Discriminators, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// KindOf is the reverse lookup of a stored tag.
func (d Discriminators) KindOf(tag string) (Kind, bool) {
	for k, v := range d {
		if v == tag {
			return k, true
		}
	}
	return KindItem, false
}

// ETag derives a strong entity tag from an item payload.
func ETag(data []byte) string {
	hash := sha1.Sum(data)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
