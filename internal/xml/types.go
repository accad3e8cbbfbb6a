package xml

import "github.com/beevik/etree"

// Common XML tag names used in DAV reports
const (
	TagProp        = "prop"
	TagMultistatus = "multistatus"
	TagResponse    = "response"
	TagHref        = "href"
	TagPropstat    = "propstat"
	TagStatus      = "status"
	TagError       = "error"
	TagFilter      = "filter"
	TagCompFilter  = "comp-filter"
	TagPropFilter  = "prop-filter"
	TagTextMatch   = "text-match"
	TagTimeRange   = "time-range"
	TagIsNotDef    = "is-not-defined"
	TagTimezone    = "timezone"
	TagLimit       = "limit"
	TagNResults    = "nresults"
)

// Property represents a generic XML property
type Property struct {
	Name        string
	Namespace   string
	TextContent string
	Children    []Property
}

// ToElement converts a Property to an etree.Element, writing the namespace as its prefix.
func (p *Property) ToElement() *etree.Element {
	elem := etree.NewElement(p.Name)
	ns := p.Namespace
	if ns == "" {
		ns = DAV
	}
	elem.Space = Prefix(ns)
	if p.TextContent != "" {
		elem.SetText(p.TextContent)
	}
	for _, child := range p.Children {
		elem.AddChild(child.ToElement())
	}
	return elem
}

// FromElement populates a Property from an etree.Element
func (p *Property) FromElement(elem *etree.Element) {
	p.Name = elem.Tag
	p.Namespace = namespaceOf(elem)
	p.TextContent = elem.Text()
	p.Children = nil

	for _, child := range elem.ChildElements() {
		childProp := Property{}
		childProp.FromElement(child)
		p.Children = append(p.Children, childProp)
	}
}

// Error represents a WebDAV error response body, e.g. a failed precondition.
type Error struct {
	Namespace string
	Tag       string
	Message   string
}

// ToElement converts an Error to an etree.Element
func (e *Error) ToElement() *etree.Element {
	err := etree.NewElement(TagError)
	err.Space = Prefix(DAV)
	tag := etree.NewElement(e.Tag)
	if e.Namespace != "" {
		tag.Space = Prefix(e.Namespace)
	}
	if e.Message != "" {
		tag.SetText(e.Message)
	}
	err.AddChild(tag)
	return err
}

// Document wraps an Error in a standalone document.
func (e *Error) Document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(e.ToElement())
	AddNamespaces(doc)
	return doc
}

// namespaceOf resolves the element's namespace URI, falling back to the raw prefix.
func namespaceOf(elem *etree.Element) string {
	if ns := elem.NamespaceURI(); ns != "" {
		return ns
	}
	return elem.Space
}
