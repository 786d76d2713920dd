package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/ingest"
	"github.com/matzehuels/multinet/pkg/metadata"
)

// readBody reads the request body up to the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return nil, errs.New(errs.ErrCodeTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
	case err != nil:
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read request body")
	}
	return data, nil
}

// decodeBody reads a capped JSON request body into v. Malformed JSON is
// reported with code.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, code errs.Code, what string) error {
	data, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrap(code, err, "decode %s", what)
	}
	return nil
}

// csvOptions reads ?key, ?overwrite, ?delimiter and ?columns.
// columns is a JSON array of {"key", "type"} objects.
func csvOptions(r *http.Request) (ingest.CSVOptions, error) {
	q := r.URL.Query()
	opts := ingest.CSVOptions{Key: q.Get("key")}

	overwrite, err := boolParam(r, "overwrite")
	if err != nil {
		return opts, err
	}
	opts.Overwrite = overwrite

	if d := q.Get("delimiter"); d != "" {
		if utf8.RuneCountInString(d) != 1 {
			return opts, errs.New(errs.ErrCodeInvalidInput, "delimiter must be a single character")
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(d)
	}

	if raw := q.Get("columns"); raw != "" {
		var cols []metadata.Column
		if err := json.Unmarshal([]byte(raw), &cols); err != nil {
			return opts, errs.Wrap(errs.ErrCodeInvalidMetadata, err, "decode columns")
		}
		opts.Columns = cols
	}
	return opts, nil
}

func (s *Server) uploadCSV(w http.ResponseWriter, r *http.Request) {
	opts, err := csvOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.upload(w, r, func(ws, name string, data []byte) (*ingest.Result, error) {
		return s.Uploader.UploadCSV(r.Context(), ws, name, data, opts)
	})
}

func (s *Server) uploadD3(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, func(ws, name string, data []byte) (*ingest.Result, error) {
		return s.Uploader.UploadD3(r.Context(), ws, name, data)
	})
}

func (s *Server) uploadNewick(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, func(ws, name string, data []byte) (*ingest.Result, error) {
		return s.Uploader.UploadNewick(r.Context(), ws, name, data)
	})
}

func (s *Server) uploadNestedJSON(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, func(ws, name string, data []byte) (*ingest.Result, error) {
		return s.Uploader.UploadNestedJSON(r.Context(), ws, name, data)
	})
}

type uploadFunc func(workspace, name string, data []byte) (*ingest.Result, error)

func (s *Server) upload(w http.ResponseWriter, r *http.Request, fn uploadFunc) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := fn(chi.URLParam(r, "workspace"), chi.URLParam(r, "name"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
