package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
	abq "github.com/cyp0633/caldavquery/internal/xml/addressbook-query"
	cq "github.com/cyp0633/caldavquery/internal/xml/calendar-query"
	"github.com/cyp0633/caldavquery/server/storage"
)

const (
	propGetETag      = "getetag"
	propCalendarData = "calendar-data"
	propAddressData  = "address-data"

	statusOK       = "HTTP/1.1 200 OK"
	statusNotFound = "HTTP/1.1 404 Not Found"
)

// Report is a parsed calendar-query or addressbook-query REPORT.
type Report struct {
	Props  []string
	Filter *storage.ItemFilter
	// Limit caps the number of results, zero means unlimited.
	Limit int
	// Namespace is CalDAV or CardDAV, used for precondition errors.
	Namespace string
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rp, err := s.resourcePath(r)
	if err != nil || rp.Type != storage.ResourceTypeCollection {
		s.logger.Warn("report target is not a collection", "path", r.URL.Path)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if _, err := s.store.GetCollection(r.Context(), rp.CollectionID); err != nil {
		s.logger.Warn("report on unknown collection", "collection", rp.CollectionID, "error", err)
		http.Error(w, "Collection not found", storageStatus(err))
		return
	}

	rep, err := ParseReport(string(body), rp.CollectionID)
	if err != nil {
		s.writeReportError(w, rep, err)
		return
	}

	uids, err := s.store.FindItems(r.Context(), rep.Filter)
	if err != nil {
		s.logger.Error("filter search failed", "error", err)
		http.Error(w, err.Error(), storageStatus(err))
		return
	}
	if rep.Limit > 0 && len(uids) > rep.Limit {
		uids = uids[:rep.Limit]
	}
	s.logger.Info("report answered", "collection", rp.CollectionID, "matches", len(uids))

	ms := &xml.MultistatusResponse{}
	for _, uid := range uids {
		item, err := s.store.GetItem(r.Context(), uid)
		if storage.IsType(err, storage.ErrNotFound) {
			// deleted between search and fetch
			continue
		}
		if err != nil {
			s.logger.Error("failed to load matching item", "uid", uid, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		ms.Responses = append(ms.Responses, s.itemResponse(item, rep.Props))
	}

	w.Header().Set(headerContentType, mimeTypeXML)
	w.WriteHeader(http.StatusMultiStatus)
	if _, err := ms.ToXML().WriteTo(w); err != nil {
		s.logger.Error("failed to write multistatus", "error", err)
	}
}

// ParseReport dispatches on the body's root element and maps the query onto
// an item filter over collection. The returned report carries its namespace
// even on error. Unmappable filters fail with xml.ErrUnsupportedFilter.
func ParseReport(body string, collection int64) (*Report, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil || doc.Root() == nil {
		return &Report{Namespace: xml.DAV}, errors.New("malformed report body")
	}

	switch xml.LocalName(doc.Root()) {
	case "calendar-query":
		rep := &Report{Namespace: xml.CalDAV}
		req, err := cq.ParseRequest(body)
		if err != nil {
			return rep, err
		}
		rep.Props = req.Props
		rep.Filter, err = req.ItemFilter(collection)
		return rep, err
	case "addressbook-query":
		rep := &Report{Namespace: xml.CardDAV}
		req, err := abq.ParseRequest(body)
		if err != nil {
			return rep, err
		}
		rep.Props = req.Props
		rep.Limit = req.Limit
		rep.Filter, err = req.ItemFilter(collection)
		return rep, err
	default:
		return &Report{Namespace: xml.DAV}, ErrUnsupportedReport
	}
}

// ErrUnsupportedReport is returned for REPORT bodies other than the two query reports.
var ErrUnsupportedReport = errors.New("unsupported report")

func (s *Server) writeReportError(w http.ResponseWriter, rep *Report, err error) {
	var davErr *xml.Error
	switch {
	case errors.Is(err, xml.ErrUnsupportedFilter):
		davErr = &xml.Error{Namespace: rep.Namespace, Tag: "supported-filter", Message: err.Error()}
	case errors.Is(err, ErrUnsupportedReport):
		davErr = &xml.Error{Namespace: xml.DAV, Tag: "supported-report"}
	default:
		s.logger.Warn("bad report request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Warn("report precondition failed", "precondition", davErr.Tag, "error", err)
	w.Header().Set(headerContentType, mimeTypeXML)
	w.WriteHeader(http.StatusForbidden)
	davErr.Document().WriteTo(w)
}

// itemResponse lists the requested properties of item. Unknown properties
// are reported in a 404 propstat.
func (s *Server) itemResponse(item *storage.Item, props []string) xml.Response {
	if len(props) == 0 {
		props = []string{propGetETag}
	}

	var found, missing []xml.Property
	for _, name := range props {
		switch {
		case name == propGetETag:
			found = append(found, xml.Property{Name: name, Namespace: xml.DAV, TextContent: item.ETag})
		case name == propCalendarData && item.Kind != storage.KindCard:
			found = append(found, xml.Property{Name: name, Namespace: xml.CalDAV, TextContent: string(item.Data)})
		case name == propAddressData && item.Kind == storage.KindCard:
			found = append(found, xml.Property{Name: name, Namespace: xml.CardDAV, TextContent: string(item.Data)})
		default:
			missing = append(missing, xml.Property{Name: name, Namespace: propNamespace(name)})
		}
	}

	resp := xml.Response{Href: s.href(item)}
	if len(found) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: found, Status: statusOK})
	}
	if len(missing) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: missing, Status: statusNotFound})
	}
	return resp
}

func propNamespace(name string) string {
	switch name {
	case propCalendarData:
		return xml.CalDAV
	case propAddressData:
		return xml.CardDAV
	default:
		return xml.DAV
	}
}
