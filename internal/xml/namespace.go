package xml

import "github.com/beevik/etree"

// Namespace definitions for CalDAV, CardDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CardDAV is the CardDAV namespace
	CardDAV = "urn:ietf:params:xml:ns:carddav"
)

// prefixes maps each namespace to the prefix used when writing documents.
var prefixes = map[string]string{
	DAV:     "D",
	CalDAV:  "C",
	CardDAV: "CARD",
}

// Prefix returns the document prefix for ns. Unknown namespaces, including
// values that already are prefixes, are returned unchanged.
func Prefix(ns string) string {
	if p, ok := prefixes[ns]; ok {
		return p
	}
	return ns
}

// AddNamespaces declares the DAV, CalDAV and CardDAV prefixes on the root element
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns:D", DAV)
	root.CreateAttr("xmlns:C", CalDAV)
	root.CreateAttr("xmlns:CARD", CardDAV)
}
