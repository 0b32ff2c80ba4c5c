// Package response writes the JSON envelope every API endpoint returns:
// {"data": ..., "error": null} on success and {"data": null, "error": {...}}
// on failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/fillmap/pkg/errors"
)

// Error codes carried in the envelope.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidTarget    = "INVALID_TARGET"
	CodeUnknownField     = "UNKNOWN_FIELD"
	CodeConflict         = "CONFLICT"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// Response is the envelope.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error is the failure half of the envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Write sends resp with status. Encoding errors are dropped because the
// header has already gone out.
func Write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Fail sends an error envelope.
func Fail(w http.ResponseWriter, status int, code, message, details string) {
	Write(w, status, Response{Error: &Error{Code: code, Message: message, Details: details}})
}

// OK sends data with 200.
func OK(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Response{Data: data})
}

// BadRequest sends 400.
func BadRequest(w http.ResponseWriter, message, details string) {
	Fail(w, http.StatusBadRequest, CodeBadRequest, message, details)
}

// NotFound sends 404.
func NotFound(w http.ResponseWriter, message, details string) {
	Fail(w, http.StatusNotFound, CodeNotFound, message, details)
}

// MethodNotAllowed sends 405 naming the rejected method.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	Fail(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed,
		"Method not allowed", "Method "+method+" is not supported for this endpoint")
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Fail(w, http.StatusServiceUnavailable, CodeUnavailable, "Service unavailable", message)
}

// InternalError sends 500. The cause is never echoed to the client.
func InternalError(w http.ResponseWriter, _ error) {
	Fail(w, http.StatusInternalServerError, CodeInternal, "Internal server error", "An unexpected error occurred")
}

// errorRules are tried in order; the first match decides the response.
var errorRules = []struct {
	match  func(error) bool
	status int
	code   string
}{
	{errors.IsInvalidTarget, http.StatusUnprocessableEntity, CodeInvalidTarget},
	{errors.IsUnknownField, http.StatusUnprocessableEntity, CodeUnknownField},
	{errors.IsNotEditable, http.StatusConflict, CodeConflict},
	{errors.IsInvalidTransition, http.StatusConflict, CodeConflict},
	{errors.IsNotFound, http.StatusNotFound, CodeNotFound},
	{errors.IsValidationError, http.StatusBadRequest, CodeBadRequest},
	{errors.IsCanceled, http.StatusServiceUnavailable, CodeUnavailable},
}

// ErrorFromType maps a domain error, wrapped or not, to its response.
// Anything unrecognised is a 500.
func ErrorFromType(w http.ResponseWriter, err error) {
	for _, rule := range errorRules {
		if rule.match(err) {
			Fail(w, rule.status, rule.code, err.Error(), "")
			return
		}
	}
	InternalError(w, err)
}
