package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/task-tracker/internal/service"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. On failure it writes the
// response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		s.respondWithError(w, http.StatusBadRequest, msg)
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		s.respondWithError(w, http.StatusBadRequest, msg)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Request body contains unknown field %s", fieldName))
	case errors.Is(err, io.EOF):
		s.respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
	case errors.As(err, &maxBytesError):
		s.respondWithError(w, http.StatusRequestEntityTooLarge, "Request body is too large")
	default:
		s.log.WithError(err).Error("decode request body")
		s.respondWithError(w, http.StatusInternalServerError, "Error processing request")
	}
	return false
}

// idParam parses the {id} URL parameter. On failure it writes a 400 and returns false.
func (s *Server) idParam(w http.ResponseWriter, r *http.Request, resource string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID provided", resource))
		return 0, false
	}
	return uint(id), true
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// respondWithServiceError maps service errors to status codes. Details of
// internal failures are logged by the service and never returned.
func (s *Server) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"message": "The given data was invalid.",
			"errors":  verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		s.respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrForbidden):
		s.respondWithError(w, http.StatusForbidden, err.Error())
	default:
		if !errors.Is(err, service.ErrInternal) {
			s.log.WithError(err).WithField("path", r.URL.Path).Error("unexpected service error")
		}
		s.respondWithError(w, http.StatusInternalServerError, "Something went wrong, please try again later")
	}
}
