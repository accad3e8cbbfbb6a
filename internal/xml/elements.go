package xml

import (
	"strings"

	"github.com/beevik/etree"
)

// LocalName strips a namespace prefix from an element tag.
func LocalName(elem *etree.Element) string {
	tag := elem.Tag
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		tag = tag[i+1:]
	}
	return tag
}

// Children returns all child elements with the given local name, ignoring namespace.
func Children(parent *etree.Element, localName string) []*etree.Element {
	var elements []*etree.Element
	for _, child := range parent.ChildElements() {
		if strings.EqualFold(LocalName(child), localName) {
			elements = append(elements, child)
		}
	}
	return elements
}

// Child finds the first child element with the given local name, ignoring namespace.
func Child(parent *etree.Element, localName string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if strings.EqualFold(LocalName(child), localName) {
			return child
		}
	}
	return nil
}

// PropNames lists the lower-cased local names requested in a <prop> element.
func PropNames(prop *etree.Element) []string {
	if prop == nil {
		return nil
	}
	var names []string
	for _, elem := range prop.ChildElements() {
		names = append(names, strings.ToLower(LocalName(elem)))
	}
	return names
}
