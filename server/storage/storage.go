package storage

import (
	"context"
	"time"
)

// Store connects the query engine with a backend (e.g. database) that can
// persist items and answer filter searches. Please use the error types provided.
type Store interface {
	// CreateCollection creates a collection. Implementations assign ID when it is zero.
	CreateCollection(ctx context.Context, col *Collection) error
	// GetCollection retrieves a collection by id.
	GetCollection(ctx context.Context, id int64) (*Collection, error)
	// PutItem creates or replaces an item, keyed by its UID.
	// Implementations generate a UID when it is empty and set Modified.
	PutItem(ctx context.Context, item *Item) error
	// GetItem finds an item by UID.
	GetItem(ctx context.Context, uid string) (*Item, error)
	// DeleteItem removes an item by UID.
	DeleteItem(ctx context.Context, uid string) error
	// FindItems returns the UIDs of all items matching filter.
	// The order of the result is not guaranteed.
	FindItems(ctx context.Context, filter *ItemFilter) ([]string, error)
}

// Collection is a calendar or address book holding items.
type Collection struct {
	ID          int64
	Name        string
	DisplayName string
	// Kind is KindEvent for calendars and KindCard for address books.
	Kind Kind
}

// Item is a stored calendar or address-book entry.
//
// StartDate and EndDate are materialized when the item is written: for a
// recurring event they span from the first occurrence start to the last
// occurrence end, so time-range queries never need to expand rules.
type Item struct {
	UID          string
	CollectionID int64
	// Name is the resource name inside its collection, e.g. "event1.ics".
	Name        string
	DisplayName string
	Kind        Kind
	StartDate   *time.Time
	EndDate     *time.Time
	Recurring   bool
	Modified    time.Time
	// ETag changes whenever Data changes. Stores compute it on write.
	ETag string
	// Data holds the raw iCalendar or vCard payload.
	Data []byte
}
