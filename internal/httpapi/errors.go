package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"mlpredict/internal/artifact"
	"mlpredict/internal/capability"
	"mlpredict/internal/deps"
	"mlpredict/internal/scenario"
	"mlpredict/internal/unit"
	"mlpredict/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps runtime errors to an HTTP status and a metrics class.
func statusFor(err error) (int, string) {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode(), "custom"
	case scenario.IsInput(err):
		return http.StatusBadRequest, "input"
	case artifact.IsNotFound(err), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "artifact"
	case unit.IsCompilationError(err):
		return http.StatusUnprocessableEntity, "compilation"
	case scenario.IsUnsupportedScenario(err):
		return http.StatusUnprocessableEntity, "scenario"
	case scenario.IsFallbackExhausted(err), capability.IsIntrospection(err), capability.IsSymbolNotFound(err):
		return http.StatusUnprocessableEntity, "symbol"
	case deps.IsFetchWarning(err):
		return http.StatusFailedDependency, "dependency"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
