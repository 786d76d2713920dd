package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	errs "github.com/matzehuels/multinet/pkg/errors"
	"github.com/matzehuels/multinet/pkg/validation"
)

type errorBody struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

type validationBody struct {
	Errors []validation.Error `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeValidation, errs.ErrCodeInvalidInput, errs.ErrCodeInvalidName,
		errs.ErrCodeInvalidMetadata, errs.ErrCodeDecode, errs.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	case errs.ErrCodeAlreadyExists:
		return http.StatusConflict
	case errs.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with err. Server-side failures are logged; their
// causes are not sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if list, ok := validation.Errors(err); ok {
		writeJSON(w, http.StatusBadRequest, validationBody{Errors: list})
		return
	}
	code := errs.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		if code == "" {
			code = errs.ErrCodeInternal
		}
	}
	writeJSON(w, status, errorBody{Code: code, Message: errs.UserMessage(err)})
}

// intParam reads a non-negative integer query parameter, or def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.New(errs.ErrCodeInvalidInput, "%s must be a non-negative integer", name)
	}
	return n, nil
}

// boolParam reads a boolean query parameter. Absent means false.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errs.New(errs.ErrCodeInvalidInput, "%s must be a boolean", name)
	}
	return b, nil
}
