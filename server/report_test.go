package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const standupBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//caldavquery//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"DTSTART:20240101T090000Z\r\n" +
	"DTEND:20240101T091500Z\r\n" +
	"RRULE:FREQ=DAILY\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const todoBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//caldavquery//test//EN\r\n" +
	"BEGIN:VTODO\r\n" +
	"UID:taxes\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:File taxes\r\n" +
	"END:VTODO\r\n" +
	"END:VCALENDAR\r\n"

func calendarQuery(filter string) string {
	return `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/><D:displayname/></D:prop>
  <C:filter>` + filter + `</C:filter>
</C:calendar-query>`
}

// seeded returns a server holding two events and a todo in collection 1 and a card in collection 2.
func seeded(t *testing.T) *Server {
	t.Helper()
	srv, _ := newTestServer(t)
	for path, body := range map[string]string{
		"/dav/collections/1/event1.ics": eventBody,
		"/dav/collections/1/standup.ics": standupBody,
		"/dav/collections/1/taxes.ics":   todoBody,
	} {
		require.Equal(t, http.StatusCreated, do(srv, http.MethodPut, path, "text/calendar", body).Code, path)
	}
	require.Equal(t, http.StatusCreated, do(srv, http.MethodPut, "/dav/collections/2/jane.vcf", "text/vcard", cardBody).Code)
	return srv
}

func parseMultistatus(t *testing.T, body string) xml.MultistatusResponse {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(body))
	var ms xml.MultistatusResponse
	require.NoError(t, ms.Parse(doc))
	return ms
}

func hrefs(ms xml.MultistatusResponse) []string {
	var out []string
	for _, r := range ms.Responses {
		out = append(out, r.Href)
	}
	return out
}

func TestHandleReport_CalendarQuery(t *testing.T) {
	srv := seeded(t)

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{
			name:   "all items",
			filter: `<C:comp-filter name="VCALENDAR"/>`,
			want:   []string{"/dav/collections/1/event1.ics", "/dav/collections/1/standup.ics", "/dav/collections/1/taxes.ics"},
		},
		{
			name:   "events in range",
			filter: `<C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"><C:time-range start="20240110T093000Z" end="20240110T110000Z"/></C:comp-filter></C:comp-filter>`,
			want:   []string{"/dav/collections/1/event1.ics", "/dav/collections/1/standup.ics"},
		},
		{
			name:   "recurring event years later",
			filter: `<C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"><C:time-range start="20300101T000000Z" end="20300102T000000Z"/></C:comp-filter></C:comp-filter>`,
			want:   []string{"/dav/collections/1/standup.ics"},
		},
		{
			name:   "summary match",
			filter: `<C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"><C:prop-filter name="SUMMARY"><C:text-match>SYNC</C:text-match></C:prop-filter></C:comp-filter></C:comp-filter>`,
			want:   []string{"/dav/collections/1/event1.ics"},
		},
		{
			name:   "todos",
			filter: `<C:comp-filter name="VCALENDAR"><C:comp-filter name="VTODO"/></C:comp-filter>`,
			want:   []string{"/dav/collections/1/taxes.ics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, "REPORT", "/dav/collections/1/", "application/xml", calendarQuery(tt.filter))
			require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
			assert.ElementsMatch(t, tt.want, hrefs(parseMultistatus(t, rec.Body.String())))
		})
	}
}

func TestHandleReport_Properties(t *testing.T) {
	srv := seeded(t)

	filter := `<C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"><C:prop-filter name="UID"><C:text-match collation="i;octet" match-type="equals">event-uid-1</C:text-match></C:prop-filter></C:comp-filter></C:comp-filter>`
	rec := do(srv, "REPORT", "/dav/collections/1/", "application/xml", calendarQuery(filter))
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	ms := parseMultistatus(t, rec.Body.String())
	require.Len(t, ms.Responses, 1)
	resp := ms.Responses[0]
	require.Len(t, resp.PropStats, 2)

	ok := resp.PropStats[0]
	assert.Equal(t, "HTTP/1.1 200 OK", ok.Status)
	require.Len(t, ok.Props, 2)
	assert.Equal(t, "getetag", ok.Props[0].Name)
	assert.Equal(t, storage.ETag([]byte(eventBody)), ok.Props[0].TextContent)
	assert.Equal(t, "calendar-data", ok.Props[1].Name)
	assert.Equal(t, xml.CalDAV, ok.Props[1].Namespace)
	assert.Contains(t, ok.Props[1].TextContent, "UID:event-uid-1")

	missing := resp.PropStats[1]
	assert.Equal(t, "HTTP/1.1 404 Not Found", missing.Status)
	require.Len(t, missing.Props, 1)
	assert.Equal(t, "displayname", missing.Props[0].Name)
}

func TestHandleReport_AddressbookQuery(t *testing.T) {
	srv := seeded(t)

	body := `<?xml version="1.0" encoding="utf-8" ?>
<CARD:addressbook-query xmlns:D="DAV:" xmlns:CARD="urn:ietf:params:xml:ns:carddav">
  <D:prop><D:getetag/><CARD:address-data/></D:prop>
  <CARD:filter>
    <CARD:prop-filter name="FN">
      <CARD:text-match match-type="starts-with">jane</CARD:text-match>
    </CARD:prop-filter>
  </CARD:filter>
</CARD:addressbook-query>`

	rec := do(srv, "REPORT", "/dav/collections/2/", "application/xml", body)
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	ms := parseMultistatus(t, rec.Body.String())
	assert.Equal(t, []string{"/dav/collections/2/jane.vcf"}, hrefs(ms))
	require.Len(t, ms.Responses[0].PropStats, 1)
	assert.Equal(t, xml.CardDAV, ms.Responses[0].PropStats[0].Props[1].Namespace)
}

func TestHandleReport_Errors(t *testing.T) {
	srv := seeded(t)

	tests := []struct {
		name   string
		path   string
		body   string
		want   int
		errTag string
	}{
		{"item target", "/dav/collections/1/event1.ics", calendarQuery(`<C:comp-filter name="VCALENDAR"/>`), http.StatusNotFound, ""},
		{"unknown collection", "/dav/collections/9/", calendarQuery(`<C:comp-filter name="VCALENDAR"/>`), http.StatusNotFound, ""},
		{"malformed body", "/dav/collections/1/", "<C:calendar-query", http.StatusBadRequest, ""},
		{"bad time range", "/dav/collections/1/",
			calendarQuery(`<C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"><C:time-range start="soon"/></C:comp-filter></C:comp-filter>`),
			http.StatusBadRequest, ""},
		{"unsupported filter", "/dav/collections/1/",
			calendarQuery(`<C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"><C:prop-filter name="LOCATION"/></C:comp-filter></C:comp-filter>`),
			http.StatusForbidden, "supported-filter"},
		{"unsupported report", "/dav/collections/1/", `<D:sync-collection xmlns:D="DAV:"/>`, http.StatusForbidden, "supported-report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, "REPORT", tt.path, "application/xml", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.errTag != "" {
				assert.Contains(t, rec.Body.String(), tt.errTag)
			}
		})
	}
}

func TestHandleReport_StorageUnavailable(t *testing.T) {
	mockStore := &storage.MockStore{}
	srv, err := New(mockStore, "/dav", WithLogger(testLogger()))
	require.NoError(t, err)

	mockStore.On("GetCollection", mock.Anything, int64(1)).
		Return(&storage.Collection{ID: 1, Kind: storage.KindEvent}, nil).Once()
	mockStore.On("FindItems", mock.Anything, mock.AnythingOfType("*storage.ItemFilter")).
		Return(nil, &storage.Error{Type: storage.ErrUnavailable, Message: "down", Err: errors.New("io")}).Once()

	rec := do(srv, "REPORT", "/dav/collections/1/", "application/xml", calendarQuery(`<C:comp-filter name="VCALENDAR"/>`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	mockStore.AssertExpectations(t)
}
