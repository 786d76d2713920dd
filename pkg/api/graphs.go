package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/export"
)

type createGraphRequest struct {
	EdgeTable string `json:"edge_table"`
}

func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.Store.ListGraphs(r.Context(), chi.URLParam(r, "workspace"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graphs)
}

func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := s.decodeBody(w, r, &req, errs.ErrCodeInvalidInput, "graph request"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.EdgeTable == "" {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "edge_table is required"))
		return
	}

	dryRun, err := boolParam(r, "dry_run")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ws := chi.URLParam(r, "workspace")
	if dryRun {
		plan, err := s.Builder.Check(r.Context(), ws, req.EdgeTable)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
		return
	}

	g, err := s.Builder.Create(r.Context(), ws, chi.URLParam(r, "graph"), req.EdgeTable)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Store.GetGraph(r.Context(), chi.URLParam(r, "workspace"), chi.URLParam(r, "graph"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	ws, name := chi.URLParam(r, "workspace"), chi.URLParam(r, "graph")
	if err := s.Store.DeleteGraph(r.Context(), ws, name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.Info("deleted graph", "workspace", ws, "graph", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) downloadGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "dot" && format != "svg" {
		s.writeError(w, r, errs.New(errs.ErrCodeUnsupported, "unsupported graph format %q", format))
		return
	}
	detailed, err := boolParam(r, "detailed")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := export.LoadGraph(r.Context(), s.Store, chi.URLParam(r, "workspace"), chi.URLParam(r, "graph"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		err = export.WriteGraphJSON(w, data)
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, err = w.Write([]byte(export.ToDOT(data, export.Options{Detailed: detailed})))
	case "svg":
		svg, rerr := export.RenderSVG(r.Context(), export.ToDOT(data, export.Options{Detailed: detailed}))
		if rerr != nil {
			s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, rerr, "render graph"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, err = w.Write(svg)
	}
	if err != nil {
		s.Logger.Warn("graph download interrupted", "graph", data.Graph.Name, "err", err)
	}
}
