package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/cyp0633/caldavquery/server/storage"
)

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	rp, err := s.resourcePath(r)
	if err != nil || rp.Type != storage.ResourceTypeItem {
		s.logger.Warn("put not allowed on resource", "path", r.URL.Path)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("failed to read request body", "error", err)
		http.Error(w, "Failed to read body", http.StatusInternalServerError)
		return
	}
	r.Body.Close()

	// 1) Index according to the media type
	var item *storage.Item
	contentType := r.Header.Get(headerContentType)
	switch {
	case strings.HasPrefix(contentType, "text/calendar"):
		item, err = s.indexer.FromICalendar(data)
	case strings.HasPrefix(contentType, "text/vcard"):
		item, err = s.indexer.FromVCard(data)
	default:
		s.logger.Warn("unsupported media type", "content_type", contentType)
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
		return
	}
	if err != nil {
		s.logger.Warn("invalid item data", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item.CollectionID = rp.CollectionID
	item.Name = rp.ItemName

	// 2) Load the existing item with the same UID, if any
	var existing *storage.Item
	if item.UID != "" {
		existing, err = s.store.GetItem(r.Context(), item.UID)
		if storage.IsType(err, storage.ErrNotFound) {
			existing = nil
		} else if err != nil {
			s.logger.Error("storage error while retrieving item", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	if existing != nil && (existing.CollectionID != item.CollectionID || existing.Name != item.Name) {
		s.logger.Warn("uid already used by another resource", "uid", item.UID, "href", s.href(existing))
		http.Error(w, "UID conflict", http.StatusConflict)
		return
	}

	// 3) Validate preconditions
	ifMatch := r.Header.Get("If-Match")
	ifNone := r.Header.Get("If-None-Match")
	if existing != nil {
		if ifMatch != "" && ifMatch != existing.ETag {
			s.logger.Warn("etag mismatch", "client_etag", ifMatch, "server_etag", existing.ETag)
			http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
			return
		}
		if ifNone == "*" {
			s.logger.Warn("if-none-match=* used but resource exists")
			http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
			return
		}
	} else if ifMatch != "" {
		s.logger.Warn("if-match used on non-existent resource", "etag", ifMatch)
		http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
		return
	}

	// 4) Persist
	if err := s.store.PutItem(r.Context(), item); err != nil {
		s.logger.Error("failed to save item", "error", err)
		http.Error(w, "Failed to save item", storageStatus(err))
		return
	}

	// 5) Respond
	w.Header().Set(headerETag, item.ETag)
	if existing == nil {
		s.logger.Info("item created", "href", s.href(item), "uid", item.UID, "etag", item.ETag)
		w.Header().Set(headerLocation, s.href(item))
		w.WriteHeader(http.StatusCreated)
		return
	}
	s.logger.Info("item updated", "href", s.href(item), "uid", item.UID, "etag", item.ETag)
	w.WriteHeader(http.StatusNoContent)
}
