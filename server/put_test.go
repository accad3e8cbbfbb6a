package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const eventBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//caldavquery//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:event-uid-1\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Team Sync\r\n" +
	"DTSTART:20240110T090000Z\r\n" +
	"DTEND:20240110T100000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const cardBody = "BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"UID:card-uid-1\r\n" +
	"FN:Jane Smith\r\n" +
	"END:VCARD\r\n"

func TestHandlePut(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	rec := do(srv, http.MethodPut, "/dav/collections/1/event1.ics", "text/calendar; charset=utf-8", eventBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/dav/collections/1/event1.ics", rec.Header().Get("Location"))
	assert.Equal(t, storage.ETag([]byte(eventBody)), rec.Header().Get("ETag"))

	item, err := store.GetItem(ctx, "event-uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Team Sync", item.DisplayName)
	assert.Equal(t, storage.KindEvent, item.Kind)
	assert.Equal(t, int64(1), item.CollectionID)
	assert.Equal(t, "event1.ics", item.Name)

	rec = do(srv, http.MethodPut, "/dav/collections/2/jane.vcf", "text/vcard", cardBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	card, err := store.GetItem(ctx, "card-uid-1")
	require.NoError(t, err)
	assert.Equal(t, storage.KindCard, card.Kind)
	assert.Equal(t, "Jane Smith", card.DisplayName)
}

func TestHandlePut_Update(t *testing.T) {
	srv, _ := newTestServer(t)
	path := "/dav/collections/1/event1.ics"

	rec := do(srv, http.MethodPut, path, "text/calendar", eventBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	etag := rec.Header().Get("ETag")

	req := func(header, value string) int {
		r := newPut(path, eventBody)
		r.Header.Set(header, value)
		w := recorder(srv, r)
		return w.Code
	}

	assert.Equal(t, http.StatusPreconditionFailed, req("If-None-Match", "*"))
	assert.Equal(t, http.StatusPreconditionFailed, req("If-Match", `"stale"`))
	assert.Equal(t, http.StatusNoContent, req("If-Match", etag))

	// same UID under another name
	rec = do(srv, http.MethodPut, "/dav/collections/1/other.ics", "text/calendar", eventBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlePut_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		headers     map[string]string
		want        int
	}{
		{"collection target", "/dav/collections/1/", "text/calendar", eventBody, nil, http.StatusMethodNotAllowed},
		{"bad path", "/dav/elsewhere/x.ics", "text/calendar", eventBody, nil, http.StatusMethodNotAllowed},
		{"media type", "/dav/collections/1/e.ics", "application/json", "{}", nil, http.StatusUnsupportedMediaType},
		{"invalid calendar", "/dav/collections/1/e.ics", "text/calendar", "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil, http.StatusBadRequest},
		{"unknown collection", "/dav/collections/9/e.ics", "text/calendar", eventBody, nil, http.StatusNotFound},
		{"if-match on new item", "/dav/collections/1/e.ics", "text/calendar", eventBody,
			map[string]string{"If-Match": `"x"`}, http.StatusPreconditionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newPut(tt.path, tt.body)
			r.Header.Set("Content-Type", tt.contentType)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, recorder(srv, r).Code)
		})
	}
}

func TestHandlePut_StorageUnavailable(t *testing.T) {
	mockStore := &storage.MockStore{}
	srv, err := New(mockStore, "/dav", WithLogger(testLogger()))
	require.NoError(t, err)

	mockStore.On("GetItem", mock.Anything, "event-uid-1").
		Return(nil, errors.New("storage unavailable")).Once()

	rec := do(srv, http.MethodPut, "/dav/collections/1/event1.ics", "text/calendar", eventBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	mockStore.AssertExpectations(t)
}
