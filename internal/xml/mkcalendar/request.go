// Package mkcalendar parses collection creation bodies: MKCALENDAR for
// calendars and extended MKCOL for address books.
package mkcalendar

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
	"github.com/cyp0633/caldavquery/server/storage"
)

// ErrNotAddressBook is returned for an MKCOL body whose resourcetype is not an address book.
var ErrNotAddressBook = errors.New("mkcol: only addressbook collections are supported")

// Request is the collection described by a creation body.
type Request struct {
	Kind        storage.Kind
	DisplayName string
}

// ParseRequest parses an MKCALENDAR body. An empty body creates a calendar
// without a display name.
func ParseRequest(body string) (*Request, error) {
	req := &Request{Kind: storage.KindEvent}
	if strings.TrimSpace(body) == "" {
		return req, nil
	}

	root, err := readRoot(body, "mkcalendar")
	if err != nil {
		return nil, err
	}
	if prop := setProp(root); prop != nil {
		req.DisplayName = displayName(prop)
	}
	return req, nil
}

// ParseMkcol parses an extended MKCOL body. The resourcetype must name an addressbook.
func ParseMkcol(body string) (*Request, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrNotAddressBook
	}
	root, err := readRoot(body, "mkcol")
	if err != nil {
		return nil, err
	}

	prop := setProp(root)
	if prop == nil {
		return nil, ErrNotAddressBook
	}
	rt := xml.Child(prop, "resourcetype")
	if rt == nil || xml.Child(rt, "addressbook") == nil {
		return nil, ErrNotAddressBook
	}
	return &Request{Kind: storage.KindCard, DisplayName: displayName(prop)}, nil
}

func readRoot(body, tag string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || !strings.EqualFold(xml.LocalName(root), tag) {
		return nil, errors.New("invalid request: missing " + tag + " element")
	}
	return root, nil
}

// setProp returns the <prop> inside <set>, if any.
func setProp(root *etree.Element) *etree.Element {
	set := xml.Child(root, "set")
	if set == nil {
		return nil
	}
	return xml.Child(set, xml.TagProp)
}

func displayName(prop *etree.Element) string {
	if dn := xml.Child(prop, "displayname"); dn != nil {
		return strings.TrimSpace(dn.Text())
	}
	return ""
}
