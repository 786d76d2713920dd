package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/export"
	"github.com/matzehuels/multinet/pkg/metadata"
	"github.com/matzehuels/multinet/pkg/query"
	"github.com/matzehuels/multinet/pkg/table"
)

type rowsResponse struct {
	Offset int        `json:"offset"`
	Limit  int        `json:"limit,omitempty"`
	Count  int        `json:"count"`
	Rows   table.Rows `json:"rows"`
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.Store.ListTables(r.Context(), chi.URLParam(r, "workspace"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) deleteTable(w http.ResponseWriter, r *http.Request) {
	ws, name := chi.URLParam(r, "workspace"), chi.URLParam(r, "table")
	if err := s.Store.DeleteTable(r.Context(), ws, name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Metadata.Invalidate(r.Context(), ws, name)
	s.Logger.Info("deleted table", "workspace", ws, "table", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tableRows(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := query.Lazy(chi.URLParam(r, "workspace"), chi.URLParam(r, "table"), offset, limit)
	rows, err := res.Resolve(r.Context(), s.Store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Offset: offset, Limit: limit, Count: len(rows), Rows: rows})
}

func (s *Server) downloadTable(w http.ResponseWriter, r *http.Request) {
	ws, name := chi.URLParam(r, "workspace"), chi.URLParam(r, "table")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		s.writeError(w, r, errs.New(errs.ErrCodeUnsupported, "unsupported download format %q", format))
		return
	}

	rows, err := query.Lazy(ws, name, 0, 0).Resolve(r.Context(), s.Store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format))
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteCSV(w, rows)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		err = export.WriteJSON(w, rows)
	}
	if err != nil {
		s.Logger.Warn("table download interrupted", "workspace", ws, "table", name, "err", err)
	}
}

func (s *Server) getMetadata(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Metadata.Get(r.Context(), chi.URLParam(r, "workspace"), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) setMetadata(w http.ResponseWriter, r *http.Request) {
	ws, name := chi.URLParam(r, "workspace"), chi.URLParam(r, "table")
	var rec metadata.Record
	if err := s.decodeBody(w, r, &rec, errs.ErrCodeInvalidMetadata, "metadata"); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec.Table = name
	saved, err := s.Metadata.Set(r.Context(), ws, name, &rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
