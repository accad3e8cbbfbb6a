package xml

import (
	"fmt"

	"github.com/beevik/etree"
)

// MultistatusResponse represents a multistatus response
type MultistatusResponse struct {
	Responses []Response
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	Error     *Error
	Status    string
}

// PropStat represents property status in a response
type PropStat struct {
	Props  []Property
	Status string
}

// Parse parses a multistatus response from an XML document
func (m *MultistatusResponse) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if LocalName(root) != TagMultistatus {
		return fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	m.Responses = nil

	for _, respElem := range Children(root, TagResponse) {
		resp := Response{}

		if hrefElem := Child(respElem, TagHref); hrefElem != nil {
			resp.Href = hrefElem.Text()
		}
		if statusElem := Child(respElem, TagStatus); statusElem != nil {
			resp.Status = statusElem.Text()
		}

		if errorElem := Child(respElem, TagError); errorElem != nil {
			if child := errorElem.ChildElements(); len(child) > 0 {
				resp.Error = &Error{
					Tag:       LocalName(child[0]),
					Namespace: namespaceOf(child[0]),
					Message:   child[0].Text(),
				}
			}
		}

		for _, propstatElem := range Children(respElem, TagPropstat) {
			propstat := PropStat{}

			if propElem := Child(propstatElem, TagProp); propElem != nil {
				for _, prop := range propElem.ChildElements() {
					property := Property{}
					property.FromElement(prop)
					propstat.Props = append(propstat.Props, property)
				}
			}
			if statusElem := Child(propstatElem, TagStatus); statusElem != nil {
				propstat.Status = statusElem.Text()
			}

			resp.PropStats = append(resp.PropStats, propstat)
		}

		m.Responses = append(m.Responses, resp)
	}

	return nil
}

// ToXML converts a MultistatusResponse to an XML document
func (m *MultistatusResponse) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagMultistatus)
	root.Space = Prefix(DAV)
	AddNamespaces(doc)

	for _, resp := range m.Responses {
		response := root.CreateElement(TagResponse)
		response.Space = Prefix(DAV)
		href := response.CreateElement(TagHref)
		href.Space = Prefix(DAV)
		href.SetText(resp.Href)

		if resp.Error != nil {
			response.AddChild(resp.Error.ToElement())
		}
		if resp.Status != "" {
			status := response.CreateElement(TagStatus)
			status.Space = Prefix(DAV)
			status.SetText(resp.Status)
			continue
		}

		for _, propstat := range resp.PropStats {
			ps := response.CreateElement(TagPropstat)
			ps.Space = Prefix(DAV)
			prop := ps.CreateElement(TagProp)
			prop.Space = Prefix(DAV)

			for _, p := range propstat.Props {
				prop.AddChild(p.ToElement())
			}

			status := ps.CreateElement(TagStatus)
			status.Space = Prefix(DAV)
			status.SetText(propstat.Status)
		}
	}

	return doc
}
