/*
Package server exposes the item filter engine over CalDAV and CardDAV.

# Basic Usage

	store := memory.New()
	srv, err := server.New(store, "/dav")
	if err != nil {
		log.Fatal(err)
	}
	http.Handle("/dav/", srv)
	http.ListenAndServe(":8080", nil)

# URL Scheme

The server uses a fixed URL scheme below its base URI:
  - /collections/<id>/ - calendar or address book collection
  - /collections/<id>/<name> - item (event, todo, journal or card)

# Methods

  - OPTIONS advertises calendar-access and addressbook.
  - PUT indexes an iCalendar or vCard body and stores it.
  - REPORT answers calendar-query and addressbook-query on a collection
    with a multistatus listing matching items.
  - MKCALENDAR and extended MKCOL create calendars and address books.
*/
package server
