package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cyp0633/caldavquery/server/index"
	"github.com/cyp0633/caldavquery/server/storage"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerETag        = "ETag"
	headerDAV         = "DAV"
	headerAllow       = "Allow"
	headerLocation    = "Location"

	// MIME types
	mimeTypeXML = "application/xml; charset=utf-8"

	// DAV capability values
	davCapabilities = "1, calendar-access, addressbook"
	allowedMethods  = "OPTIONS, PUT, REPORT, MKCALENDAR, MKCOL"
)

// stripPrefix removes the baseURI prefix from the path
func stripPrefix(path, baseURI string) string {
	return strings.TrimPrefix(path, baseURI)
}

// Server answers filter REPORTs against a storage.Store.
type Server struct {
	store    storage.Store
	indexer  *index.Indexer
	baseURI  string
	logger   *slog.Logger
	handlers map[string]http.HandlerFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIndexer replaces the default item indexer used by PUT.
func WithIndexer(indexer *index.Indexer) Option {
	return func(s *Server) {
		if indexer != nil {
			s.indexer = indexer
		}
	}
}

// New creates a new server mounted at baseURI
func New(store storage.Store, baseURI string, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	s := &Server{
		store:    store,
		indexer:  index.New(nil),
		baseURI:  strings.TrimSuffix(baseURI, "/"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		handlers: make(map[string]http.HandlerFunc),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Register method handlers
	s.handlers[http.MethodOptions] = s.handleOptions
	s.handlers[http.MethodPut] = s.handlePut
	s.handlers["REPORT"] = s.handleReport
	s.handlers[methodMkcalendar] = s.handleMkcalendar
	s.handlers[methodMkcol] = s.handleMkcalendar

	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("request received", "method", r.Method, "path", r.URL.Path)

	handler, ok := s.handlers[r.Method]
	if !ok {
		w.Header().Set(headerAllow, allowedMethods)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handler(w, r)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerDAV, davCapabilities)
	w.Header().Set(headerAllow, allowedMethods)
	w.WriteHeader(http.StatusOK)
}

// resourcePath parses the request path below the base URI.
func (s *Server) resourcePath(r *http.Request) (*storage.ResourcePath, error) {
	return storage.ParseResourcePath(stripPrefix(r.URL.Path, s.baseURI))
}

// href is the absolute path of an item.
func (s *Server) href(item *storage.Item) string {
	return s.baseURI + storage.ItemHref(item.CollectionID, item.Name)
}

// storageStatus maps a storage error onto an HTTP status.
func storageStatus(err error) int {
	switch {
	case storage.IsType(err, storage.ErrNotFound):
		return http.StatusNotFound
	case storage.IsType(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case storage.IsType(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
