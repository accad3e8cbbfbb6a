package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/cyp0633/caldavquery/server/storage/query"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// steppingClock returns base, base+1h, base+2h, ... on successive calls.
func steppingClock() func() time.Time {
	n := 0
	return func() time.Time {
		t := base.Add(time.Duration(n) * time.Hour)
		n++
		return t
	}
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// seed fills a store with one calendar (id 1) and one address book (id 2).
func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Name: "work", Kind: storage.KindEvent}))
	require.NoError(t, s.CreateCollection(ctx, &storage.Collection{Name: "contacts", Kind: storage.KindCard}))

	items := []*storage.Item{
		{UID: "ev1", CollectionID: 1, Name: "ev1.ics", DisplayName: "Team Sync", Kind: storage.KindEvent,
			StartDate: at("2024-01-10T09:00:00Z"), EndDate: at("2024-01-10T10:00:00Z")},
		{UID: "ev2", CollectionID: 1, Name: "ev2.ics", DisplayName: "Standup", Kind: storage.KindEvent,
			StartDate: at("2024-01-01T09:00:00Z"), EndDate: at("9999-12-31T23:59:59Z"), Recurring: true},
		{UID: "ev3", CollectionID: 1, Name: "ev3.ics", DisplayName: "Deadline", Kind: storage.KindEvent,
			StartDate: at("2024-02-01T00:00:00Z"), EndDate: at("2024-02-01T00:00:00Z")},
		{UID: "todo1", CollectionID: 1, Name: "todo1.ics", DisplayName: "File taxes", Kind: storage.KindTodo},
		{UID: "card1", CollectionID: 2, Name: "card1.vcf", DisplayName: "Jane Smith", Kind: storage.KindCard},
		{UID: "card2", CollectionID: 2, Name: "card2.vcf", Kind: storage.KindCard},
	}
	for _, item := range items {
		require.NoError(t, s.PutItem(ctx, item))
	}
}

func TestStore_Collection(t *testing.T) {
	store := New()
	ctx := context.Background()

	col := &storage.Collection{Name: "work", DisplayName: "Work", Kind: storage.KindEvent}
	require.NoError(t, store.CreateCollection(ctx, col))
	assert.Equal(t, int64(1), col.ID)

	err := store.CreateCollection(ctx, &storage.Collection{ID: 1, Name: "dup"})
	require.Error(t, err)
	assert.True(t, storage.IsType(err, storage.ErrAlreadyExists))

	got, err := store.GetCollection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Work", got.DisplayName)

	_, err = store.GetCollection(ctx, 42)
	assert.True(t, storage.IsType(err, storage.ErrNotFound))

	require.NoError(t, store.CreateCollection(ctx, &storage.Collection{ID: 2, Name: "explicit"}))
	next := &storage.Collection{Name: "next"}
	require.NoError(t, store.CreateCollection(ctx, next))
	assert.Equal(t, int64(3), next.ID)
}

func TestStore_Item(t *testing.T) {
	store := New(WithClock(steppingClock()))
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, &storage.Collection{Name: "work"}))

	err := store.PutItem(ctx, &storage.Item{CollectionID: 9})
	assert.True(t, storage.IsType(err, storage.ErrNotFound))

	item := &storage.Item{CollectionID: 1, Name: "a.ics", Data: []byte("BEGIN:VCALENDAR")}
	require.NoError(t, store.PutItem(ctx, item))
	assert.NotEmpty(t, item.UID, "uid should be generated")
	assert.Equal(t, base, item.Modified)
	assert.Equal(t, storage.ETag(item.Data), item.ETag)

	got, err := store.GetItem(ctx, item.UID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)

	got.Data[0] = 'X'
	again, err := store.GetItem(ctx, item.UID)
	require.NoError(t, err)
	assert.Equal(t, byte('B'), again.Data[0], "stored data must not alias returned copies")

	item.Name = "renamed.ics"
	require.NoError(t, store.PutItem(ctx, item))
	got, err = store.GetItem(ctx, item.UID)
	require.NoError(t, err)
	assert.Equal(t, "renamed.ics", got.Name)
	assert.Equal(t, base.Add(time.Hour), got.Modified)

	require.NoError(t, store.DeleteItem(ctx, item.UID))
	_, err = store.GetItem(ctx, item.UID)
	assert.True(t, storage.IsType(err, storage.ErrNotFound))
	assert.True(t, storage.IsType(store.DeleteItem(ctx, item.UID), storage.ErrNotFound))
}

func period(start, end string) mo.Option[storage.TimeRange] {
	return mo.Some(storage.TimeRange{Start: *at(start), End: *at(end)})
}

func TestStore_FindItems(t *testing.T) {
	store := New(WithClock(steppingClock()))
	seed(t, store)

	tests := []struct {
		name   string
		filter *storage.ItemFilter
		want   []string
	}{
		{"nil filter", nil, []string{"card1", "card2", "ev1", "ev2", "ev3", "todo1"}},
		{"parent", &storage.ItemFilter{Parent: mo.Some[int64](2)}, []string{"card1", "card2"}},
		{"ilike", &storage.ItemFilter{DisplayName: storage.ILike("%SYNC%")}, []string{"ev1"}},
		{"like is case sensitive", &storage.ItemFilter{DisplayName: storage.Like("%sync%")}, []string{}},
		{"like single char", &storage.ItemFilter{DisplayName: storage.Like("Stand_p")}, []string{"ev2"}},
		{"not ilike skips null", &storage.ItemFilter{DisplayName: storage.NotILike("%s%")}, []string{"ev3"}},
		{"is null", &storage.ItemFilter{DisplayName: storage.IsNull()}, []string{"card2"}},
		{"neq skips null", &storage.ItemFilter{DisplayName: storage.Neq("Standup")},
			[]string{"card1", "ev1", "ev3", "todo1"}},
		{"events", (&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{}), []string{"ev1", "ev2", "ev3"}},
		{"event period",
			(&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{Period: period("2024-01-10T09:30:00Z", "2024-01-10T10:30:00Z")}),
			[]string{"ev1", "ev2"}},
		{"period end touches instant",
			(&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{Period: period("2024-01-31T00:00:00Z", "2024-02-01T00:00:00Z")}),
			[]string{"ev2", "ev3"}},
		{"period before everything",
			(&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{Period: period("2023-01-01T00:00:00Z", "2023-12-31T00:00:00Z")}),
			[]string{}},
		{"recurring", (&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{Recurring: mo.Some(true)}), []string{"ev2"}},
		{"not recurring", (&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{Recurring: mo.Some(false)}), []string{"ev1", "ev3"}},
		{"todos", (&storage.ItemFilter{}).AddStampFilter(storage.TodoFilter{}), []string{"todo1"}},
		{"cards", (&storage.ItemFilter{}).AddStampFilter(storage.CardFilter{}), []string{"card1", "card2"}},
		{"journals", (&storage.ItemFilter{}).AddStampFilter(storage.JournalFilter{}), []string{}},
		{"missing event",
			(&storage.ItemFilter{}).AddStampFilter(storage.GenericFilter{Marker: storage.KindEvent, Missing: true}),
			[]string{"card1", "card2", "todo1"}},
		{"generic item", (&storage.ItemFilter{}).AddStampFilter(storage.GenericFilter{Marker: storage.KindItem}),
			[]string{"card1", "card2", "ev1", "ev2", "ev3", "todo1"}},
		{"uid", &storage.ItemFilter{UID: storage.Eq("ev1")}, []string{"ev1"}},
		{"modified between",
			&storage.ItemFilter{ModifiedSince: storage.Between(base.Add(2*time.Hour), base.Add(3*time.Hour))},
			[]string{"ev3", "todo1"}},
		{"combined",
			(&storage.ItemFilter{Parent: mo.Some[int64](1), DisplayName: storage.ILike("%a%")}).
				AddStampFilter(storage.EventFilter{Recurring: mo.Some(false)}),
			[]string{"ev1", "ev3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindItems(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_FindItems_Invalid(t *testing.T) {
	store := New(WithDiscriminators(storage.Discriminators{storage.KindEvent: "event"}))
	ctx := context.Background()

	tests := []struct {
		name   string
		filter *storage.ItemFilter
		field  string
	}{
		{"arity", &storage.ItemFilter{UID: &storage.Restriction{Op: storage.OpEq}}, "uid"},
		{"missing discriminator", (&storage.ItemFilter{}).AddStampFilter(storage.JournalFilter{}), "stampFilters[0]"},
		{"base kind missing", (&storage.ItemFilter{}).AddStampFilter(storage.EventFilter{}).
			AddStampFilter(storage.GenericFilter{Marker: storage.KindItem, Missing: true}), "stampFilters[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.FindItems(ctx, tt.filter)
			require.Error(t, err)
			assert.True(t, storage.IsType(err, storage.ErrInvalidInput))

			var invalid *query.InvalidFilterError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}
