package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	names, err := s.Store.ListWorkspaces(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	if err := errs.ValidateName("workspace", name); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.CreateWorkspace(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.Info("created workspace", "workspace", name)
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "workspace")
	if err := s.Store.DeleteWorkspace(r.Context(), name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Metadata.InvalidateAll(r.Context(), name)
	s.Logger.Info("deleted workspace", "workspace", name)
	w.WriteHeader(http.StatusNoContent)
}
