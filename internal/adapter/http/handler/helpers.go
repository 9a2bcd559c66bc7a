package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/entryledger/internal/adapter/http/dto"
	"github.com/iho/entryledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps an engine error to a status and body. Internal
// errors never leak their cause.
func writeDomainError(w http.ResponseWriter, err error) {
	status := mapDomainError(err)

	resp := dto.ErrorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		resp.Error = domain.ErrInternal.Error()
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Error = domain.ErrValidation.Error()
		resp.Violations = verr.Violations
	}

	writeJSON(w, status, resp)
}

// mapDomainError maps domain error categories to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeDecodeError answers 400 for a body that could not be decoded. A value
// of the wrong JSON type is reported as a violation on its field.
func writeDecodeError(w http.ResponseWriter, err error) {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error: domain.ErrValidation.Error(),
		Violations: []domain.FieldViolation{{
			Field:   typeErr.Field,
			Rule:    "type",
			Message: "must be " + jsonTypeName(typeErr.Type.Kind()),
		}},
	})
}

func jsonTypeName(kind reflect.Kind) string {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	default:
		return "a valid " + kind.String()
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// decodeBody decodes a JSON body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pathID returns the {id} URL parameter. Global IDs are standard base64 and
// may arrive percent-encoded when they contain a slash.
func pathID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}
