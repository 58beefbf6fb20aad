// Package respond writes the JSON envelopes of the deferred-links API:
// {"success":true,"data":...} and {"success":false,"message":...,"code":...}.
package respond

import (
	"net/http"

	"github.com/goccy/go-json"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Machine-readable error codes.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeUnknownPackage = "unknown_package"
	CodeNotFound       = "not_found"
	CodeTooLarge       = "payload_too_large"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal_error"
)

// JSON writes v with status and the usual no-store headers.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope. A nil data is encoded as null.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, envelope{Success: true, Data: data})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, failure{Message: message, Code: code})
}
