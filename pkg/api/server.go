// Package api serves workspaces, tables and graphs over HTTP.
//
// Routes live under /api and follow the resource layout
//
//	/api/workspaces/{workspace}/tables/{table}
//	/api/workspaces/{workspace}/uploads/{format}/{name}
//	/api/workspaces/{workspace}/graphs/{graph}
//
// Errors are JSON. Validation failures carry the full list of problems:
//
//	{"errors": [{"type": "UndefinedKeys", "table": "places", "keys": ["9"]}]}
//
// every other error is {"code": "...", "message": "..."}, with the HTTP
// status chosen from the error code.
package api

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/multinet/pkg/buildinfo"
	"github.com/matzehuels/multinet/pkg/graphbuild"
	"github.com/matzehuels/multinet/pkg/ingest"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/store"
)

// DefaultMaxUploadBytes caps upload bodies when Server.MaxUploadBytes is unset.
const DefaultMaxUploadBytes = 64 << 20

// Server holds the services behind the HTTP handlers.
type Server struct {
	Store    store.Store
	Metadata *metadata.Service
	Uploader *ingest.Uploader
	Builder  *graphbuild.Builder
	Logger   *log.Logger

	MaxUploadBytes int64
}

// New wires a server over s. A nil meta gets an uncached metadata service.
func New(s store.Store, meta *metadata.Service, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if meta == nil {
		meta = metadata.NewService(s, nil, logger)
	}
	return &Server{
		Store:          s,
		Metadata:       meta,
		Uploader:       ingest.NewUploader(s, meta, logger),
		Builder:        graphbuild.NewBuilder(s, logger),
		Logger:         logger,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.version)

		r.Get("/workspaces", s.listWorkspaces)
		r.Route("/workspaces/{workspace}", func(r chi.Router) {
			r.Post("/", s.createWorkspace)
			r.Delete("/", s.deleteWorkspace)

			r.Get("/tables", s.listTables)
			r.Route("/tables/{table}", func(r chi.Router) {
				r.Delete("/", s.deleteTable)
				r.Get("/rows", s.tableRows)
				r.Get("/download", s.downloadTable)
				r.Get("/metadata", s.getMetadata)
				r.Put("/metadata", s.setMetadata)
			})

			r.Route("/uploads", func(r chi.Router) {
				r.Post("/csv/{name}", s.uploadCSV)
				r.Post("/d3_json/{name}", s.uploadD3)
				r.Post("/newick/{name}", s.uploadNewick)
				r.Post("/nested_json/{name}", s.uploadNestedJSON)
			})

			r.Get("/graphs", s.listGraphs)
			r.Route("/graphs/{graph}", func(r chi.Router) {
				r.Post("/", s.createGraph)
				r.Get("/", s.getGraph)
				r.Delete("/", s.deleteGraph)
				r.Get("/download", s.downloadGraph)
			})
		})
	})

	return r
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"date":    buildinfo.Date,
	})
}
