package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/cyp0633/caldavquery/internal/xml"
	"github.com/cyp0633/caldavquery/internal/xml/mkcalendar"
	"github.com/cyp0633/caldavquery/server/storage"
)

const (
	methodMkcalendar = "MKCALENDAR"
	methodMkcol      = "MKCOL"
)

// handleMkcalendar creates a calendar (MKCALENDAR) or an address book
// (extended MKCOL) at /collections/<id>/.
func (s *Server) handleMkcalendar(w http.ResponseWriter, r *http.Request) {
	rp, err := s.resourcePath(r)
	if err != nil || rp.Type != storage.ResourceTypeCollection {
		s.logger.Warn("collection creation outside a collection path", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("failed to read request body", "error", err)
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}
	r.Body.Close()

	var req *mkcalendar.Request
	if r.Method == methodMkcol {
		req, err = mkcalendar.ParseMkcol(string(body))
	} else {
		req, err = mkcalendar.ParseRequest(string(body))
	}
	if err != nil {
		s.logger.Warn("invalid collection creation body", "method", r.Method, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	col := &storage.Collection{
		ID:          rp.CollectionID,
		Name:        strconv.FormatInt(rp.CollectionID, 10),
		DisplayName: req.DisplayName,
		Kind:        req.Kind,
	}
	if err := s.store.CreateCollection(r.Context(), col); err != nil {
		if storage.IsType(err, storage.ErrAlreadyExists) {
			s.logger.Warn("collection already exists", "id", col.ID)
			w.Header().Set(headerContentType, mimeTypeXML)
			w.WriteHeader(http.StatusForbidden)
			(&xml.Error{Namespace: xml.DAV, Tag: "resource-must-be-null"}).Document().WriteTo(w)
			return
		}
		s.logger.Error("failed to create collection", "id", col.ID, "error", err)
		http.Error(w, "Failed to create collection", storageStatus(err))
		return
	}

	s.logger.Info("collection created", "id", col.ID, "kind", col.Kind, "display_name", col.DisplayName)
	w.Header().Set(headerLocation, s.baseURI+rp.String())
	w.WriteHeader(http.StatusCreated)
}
