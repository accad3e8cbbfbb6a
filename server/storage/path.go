package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceType represents the type of a DAV resource addressed by a path
type ResourceType int

const (
	ResourceTypeRoot ResourceType = iota
	ResourceTypeCollection
	ResourceTypeItem
)

// String returns the string representation of the ResourceType
func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeRoot:
		return "root"
	case ResourceTypeCollection:
		return "collection"
	case ResourceTypeItem:
		return "item"
	default:
		return "unknown"
	}
}

// ResourcePath represents a parsed resource path.
//
// The URL scheme is fixed:
//   - /collections - root
//   - /collections/<id>/ - collection
//   - /collections/<id>/<name> - item
type ResourcePath struct {
	Type         ResourceType
	CollectionID int64
	ItemName     string
}

// String returns the string representation of the ResourcePath
func (rp *ResourcePath) String() string {
	switch rp.Type {
	case ResourceTypeRoot:
		return "/collections/"
	case ResourceTypeCollection:
		return fmt.Sprintf("/collections/%d/", rp.CollectionID)
	case ResourceTypeItem:
		return fmt.Sprintf("/collections/%d/%s", rp.CollectionID, rp.ItemName)
	default:
		return ""
	}
}

// ItemHref returns the path of the named item inside collection id.
func ItemHref(id int64, name string) string {
	return (&ResourcePath{Type: ResourceTypeItem, CollectionID: id, ItemName: name}).String()
}

// ParseResourcePath parses a resource path into its components
func ParseResourcePath(path string) (*ResourcePath, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] != "collections" {
		return nil, fmt.Errorf("invalid path format")
	}

	if len(parts) == 1 {
		return &ResourcePath{Type: ResourceTypeRoot}, nil
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid collection ID %q", parts[1])
	}

	switch len(parts) {
	case 2:
		return &ResourcePath{Type: ResourceTypeCollection, CollectionID: id}, nil
	case 3:
		if parts[2] == "" {
			return nil, fmt.Errorf("invalid item name")
		}
		return &ResourcePath{Type: ResourceTypeItem, CollectionID: id, ItemName: parts[2]}, nil
	}

	return nil, fmt.Errorf("invalid path format")
}
