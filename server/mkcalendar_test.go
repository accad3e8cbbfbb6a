package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mkcalendarBody = `<?xml version="1.0" encoding="utf-8"?>
<C:mkcalendar xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:D="DAV:">
  <D:set><D:prop><D:displayname>Holidays</D:displayname></D:prop></D:set>
</C:mkcalendar>`

const mkcolBody = `<?xml version="1.0" encoding="utf-8"?>
<D:mkcol xmlns:D="DAV:" xmlns:CARD="urn:ietf:params:xml:ns:carddav">
  <D:set><D:prop>
    <D:resourcetype><D:collection/><CARD:addressbook/></D:resourcetype>
    <D:displayname>Friends</D:displayname>
  </D:prop></D:set>
</D:mkcol>`

func TestHandleMkcalendar(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	rec := do(srv, methodMkcalendar, "/dav/collections/5/", "application/xml", mkcalendarBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/dav/collections/5/", rec.Header().Get("Location"))

	col, err := store.GetCollection(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Holidays", col.DisplayName)
	assert.Equal(t, storage.KindEvent, col.Kind)

	rec = do(srv, methodMkcol, "/dav/collections/6/", "application/xml", mkcolBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	col, err = store.GetCollection(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "Friends", col.DisplayName)
	assert.Equal(t, storage.KindCard, col.Kind)

	// items can be stored in the new collection
	rec = do(srv, http.MethodPut, "/dav/collections/5/event1.ics", "text/calendar", eventBody)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandleMkcalendar_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{"existing collection", methodMkcalendar, "/dav/collections/1/", "", http.StatusForbidden, "resource-must-be-null"},
		{"item path", methodMkcalendar, "/dav/collections/1/x.ics", "", http.StatusForbidden, ""},
		{"root path", methodMkcalendar, "/dav/collections/", "", http.StatusForbidden, ""},
		{"malformed body", methodMkcalendar, "/dav/collections/7/", "<C:mkcalendar", http.StatusBadRequest, ""},
		{"plain mkcol", methodMkcol, "/dav/collections/7/", "", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, tt.method, tt.path, "application/xml", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
