// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/session"
)

// errInvalidInput marks request data the handlers could not make sense of.
var errInvalidInput = errors.New("invalid input")

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
	cookies    []*http.Cookie
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Cookie(c *http.Cookie) *JSONResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

var validationErrors = []error{
	errInvalidInput,
	core.ErrInvalidKind,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrEmptyCategory,
	core.ErrDescriptionTooLong,
	core.ErrEmptyPatch,
	core.ErrInvalidProfileName,
	core.ErrInvalidPicturePath,
	auth.ErrMissingCredentials,
	auth.ErrInvalidEmail,
	auth.ErrWeakPassword,
}

var authErrors = []error{
	auth.ErrInvalidCredentials,
	auth.ErrInvalidToken,
	session.ErrNoSession,
}

// errorStatus maps an error to its status code and the message the client
// sees. Anything unrecognised is a 500 with a generic message.
func errorStatus(err error) (int, string, string) {
	switch {
	case isAny(err, validationErrors):
		return http.StatusUnprocessableEntity, err.Error(), log.ErrorTypeValidation
	case isAny(err, authErrors):
		return http.StatusUnauthorized, err.Error(), log.ErrorTypeAuth
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "not found", log.ErrorTypeNotFound
	case errors.Is(err, ports.ErrEmailTaken):
		return http.StatusConflict, err.Error(), log.ErrorTypeConflict
	default:
		return http.StatusInternalServerError, "internal server error", log.ErrorTypeInternal
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeError logs err at a level matching its class and writes the mapped
// JSON error.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message, errorType := errorStatus(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldErrorType, errorType,
			log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errorType,
			log.FieldError, err)
	}
	ErrorResponse(status, message).Write(w)
}
