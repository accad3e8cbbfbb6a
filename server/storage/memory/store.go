// memory based implementation for testing purposes
package memory

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/cyp0633/caldavquery/server/storage/query"
	"github.com/google/uuid"
)

// Store implements storage.Store using in-memory maps. FindItems evaluates
// filters directly, so it doubles as a reference for database-backed stores.
type Store struct {
	mu          sync.RWMutex
	collections map[int64]*storage.Collection
	items       map[string]*storage.Item // key: uid
	nextID      int64

	translator     *query.Translator
	discriminators storage.Discriminators
	now            func() time.Time
	logger         *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDiscriminators sets the kind to type tag table.
func WithDiscriminators(d storage.Discriminators) Option {
	return func(s *Store) {
		s.discriminators = d.Clone()
	}
}

// WithClock replaces time.Now for modification stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		collections:    make(map[int64]*storage.Collection),
		items:          make(map[string]*storage.Item),
		discriminators: storage.DefaultDiscriminators(),
		now:            time.Now,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}
	s.translator = query.NewTranslator(query.WithDiscriminators(s.discriminators))

	return s
}

// Collection operations

func (s *Store) CreateCollection(_ context.Context, col *storage.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col.ID == 0 {
		s.nextID++
		for s.collections[s.nextID] != nil {
			s.nextID++
		}
		col.ID = s.nextID
	} else if _, exists := s.collections[col.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "collection already exists",
		}
	}

	c := *col
	s.collections[col.ID] = &c
	s.logger.Debug("collection created", "id", col.ID, "name", col.Name)

	return nil
}

func (s *Store) GetCollection(_ context.Context, id int64) (*storage.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "collection not found",
		}
	}

	c := *col
	return &c, nil
}

// Item operations

func (s *Store) PutItem(_ context.Context, item *storage.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[item.CollectionID]; !ok {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "collection not found",
		}
	}

	if item.UID == "" {
		item.UID = uuid.NewString()
	}
	item.Modified = s.now().UTC()
	item.ETag = storage.ETag(item.Data)

	s.items[item.UID] = cloneItem(item)
	s.logger.Debug("item stored", "uid", item.UID, "collection", item.CollectionID, "kind", item.Kind)

	return nil
}

func (s *Store) GetItem(_ context.Context, uid string) (*storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[uid]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "item not found",
		}
	}

	return cloneItem(item), nil
}

func (s *Store) DeleteItem(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[uid]; !ok {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "item not found",
		}
	}

	delete(s.items, uid)
	return nil
}

// FindItems returns matching UIDs in ascending order. The filter is validated
// by translating it, so malformed filters fail exactly as they would against
// a database-backed store.
func (s *Store) FindItems(_ context.Context, filter *storage.ItemFilter) ([]string, error) {
	q, err := s.translator.Translate(filter)
	if err != nil {
		s.logger.Warn("rejected filter", "error", err)
		return nil, &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "invalid filter",
			Err:     err,
		}
	}
	if filter == nil {
		filter = &storage.ItemFilter{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m := newMatcher(filter, q, s.discriminators)
	uids := []string{}
	for uid, item := range s.items {
		if m.match(item) {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)

	s.logger.Debug("items found", "query", q.Text, "count", len(uids))
	return uids, nil
}

func cloneItem(item *storage.Item) *storage.Item {
	c := *item
	if item.StartDate != nil {
		t := *item.StartDate
		c.StartDate = &t
	}
	if item.EndDate != nil {
		t := *item.EndDate
		c.EndDate = &t
	}
	if item.Data != nil {
		c.Data = append([]byte(nil), item.Data...)
	}
	return &c
}
