// Package sqlite stores items in SQLite and answers filter searches by
// running translated queries.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/cyp0633/caldavquery/server/storage/query"
	"github.com/google/uuid"
)

//go:embed schema.sql
var schema string

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// connPragmas make LIKE case sensitive, matching the ILIKE/LIKE split of
// the query language, and enforce collection references.
const connPragmas = "_pragma=case_sensitive_like(1)&_pragma=foreign_keys(1)"

// Store implements storage.Store on a SQLite database.
type Store struct {
	db             *sql.DB
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

// Open opens (creating if needed) the database at dsn and applies the schema.
// dsn is a modernc.org/sqlite data source such as "caldav.db" or ":memory:".
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open(DriverName, dsn+sep+connPragmas)
	if err != nil {
		return nil, unavailable("failed to open database", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	s := &Store{
		db:             db,
		discriminators: storage.DefaultDiscriminators(),
		now:            time.Now,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.translator = query.NewTranslator(
		query.WithEntity(Entity),
		query.WithDiscriminators(s.discriminators),
	)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, unavailable("failed to apply schema", err)
	}
	s.logger.Info("sqlite store opened", "dsn", dsn)

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Collection operations

func (s *Store) CreateCollection(ctx context.Context, col *storage.Collection) error {
	var id any
	if col.ID != 0 {
		id = col.ID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, name, displayName, kind) VALUES (?, ?, ?, ?)`,
		id, col.Name, nullString(col.DisplayName), int64(col.Kind))
	if err != nil {
		if isConstraint(err) {
			return &storage.Error{Type: storage.ErrAlreadyExists, Message: "collection already exists", Err: err}
		}
		return unavailable("failed to create collection", err)
	}

	if col.ID == 0 {
		if col.ID, err = res.LastInsertId(); err != nil {
			return unavailable("failed to read collection id", err)
		}
	}
	s.logger.Debug("collection created", "id", col.ID, "name", col.Name)
	return nil
}

func (s *Store) GetCollection(ctx context.Context, id int64) (*storage.Collection, error) {
	col := &storage.Collection{ID: id}
	var (
		displayName sql.NullString
		kind        int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, displayName, kind FROM collections WHERE id = ?`, id).
		Scan(&col.Name, &displayName, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "collection not found"}
	}
	if err != nil {
		return nil, unavailable("failed to read collection", err)
	}

	col.DisplayName = displayName.String
	col.Kind = storage.Kind(kind)
	return col, nil
}

// Item operations

func (s *Store) PutItem(ctx context.Context, item *storage.Item) error {
	if _, err := s.GetCollection(ctx, item.CollectionID); err != nil {
		return err
	}

	if item.UID == "" {
		item.UID = uuid.NewString()
	}
	item.Modified = s.now().UTC()
	item.ETag = storage.ETag(item.Data)

	var recurring int64
	if item.Recurring {
		recurring = 1
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO items (uid, collection, name, displayName, type, startDate, endDate, recurring, modifiedDate, etag, data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
    collection = excluded.collection,
    name = excluded.name,
    displayName = excluded.displayName,
    type = excluded.type,
    startDate = excluded.startDate,
    endDate = excluded.endDate,
    recurring = excluded.recurring,
    modifiedDate = excluded.modifiedDate,
    etag = excluded.etag,
    data = excluded.data`,
		item.UID, item.CollectionID, item.Name, nullString(item.DisplayName),
		nullString(s.discriminators[item.Kind]),
		sqlValue(item.StartDate), sqlValue(item.EndDate), recurring,
		formatTime(item.Modified), item.ETag, item.Data)
	if err != nil {
		return unavailable("failed to store item", err)
	}

	s.logger.Debug("item stored", "uid", item.UID, "collection", item.CollectionID, "kind", item.Kind)
	return nil
}

func (s *Store) GetItem(ctx context.Context, uid string) (*storage.Item, error) {
	item := &storage.Item{UID: uid}
	var (
		displayName, tag   sql.NullString
		startDate, endDate sql.NullString
		recurring          int64
		modified           string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT collection, name, displayName, type, startDate, endDate, recurring, modifiedDate, etag, data
FROM items WHERE uid = ?`, uid).
		Scan(&item.CollectionID, &item.Name, &displayName, &tag, &startDate, &endDate,
			&recurring, &modified, &item.ETag, &item.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "item not found"}
	}
	if err != nil {
		return nil, unavailable("failed to read item", err)
	}

	item.DisplayName = displayName.String
	item.Kind, _ = s.discriminators.KindOf(tag.String)
	item.Recurring = recurring != 0
	if item.StartDate, err = parseTime(startDate); err != nil {
		return nil, unavailable("corrupt startDate", err)
	}
	if item.EndDate, err = parseTime(endDate); err != nil {
		return nil, unavailable("corrupt endDate", err)
	}
	m, err := parseTime(sql.NullString{String: modified, Valid: true})
	if err != nil {
		return nil, unavailable("corrupt modifiedDate", err)
	}
	item.Modified = *m

	return item, nil
}

func (s *Store) DeleteItem(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid)
	if err != nil {
		return unavailable("failed to delete item", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "item not found"}
	}
	return nil
}

// FindItems translates filter and runs it. UIDs are returned in ascending order.
func (s *Store) FindItems(ctx context.Context, filter *storage.ItemFilter) ([]string, error) {
	q, err := s.translator.Translate(filter)
	if err != nil {
		s.logger.Warn("rejected filter", "error", err)
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "invalid filter", Err: err}
	}

	text, args := ToSQL(q)
	s.logger.Debug("running query", "query", text, "bindings", len(args))

	rows, err := s.db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, unavailable("failed to run query", err)
	}
	defer rows.Close()

	uids := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, unavailable("failed to scan uid", err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to read results", err)
	}

	sort.Strings(uids)
	return uids, nil
}

func unavailable(msg string, err error) error {
	return &storage.Error{Type: storage.ErrUnavailable, Message: msg, Err: err}
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "constraint failed")
}
