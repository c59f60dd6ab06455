package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
)

// errorResponse is the JSON body every non-2xx response shares.
type errorResponse struct {
	Error string `json:"error"`
}

// statusForKind maps spec.md §7's error taxonomy to an HTTP status. Kinds
// that can mean more than one status per §7 (Configuration, Validation)
// are resolved to the more common case here; handlers that need the
// sharper distinction (e.g. RateLimit's Retry-After) set it themselves
// before calling abortError.
func statusForKind(k apperrors.Kind) int {
	switch k {
	case apperrors.KindConfiguration:
		return http.StatusBadRequest
	case apperrors.KindAuth:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindExternalService:
		return http.StatusBadGateway
	case apperrors.KindVectorDB:
		return http.StatusBadGateway
	case apperrors.KindLLM:
		return http.StatusBadGateway
	case apperrors.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// abortError is the single place a handler translates an error into an
// HTTP response, mirroring errors.go's (pre-rewrite) mapServiceError: the
// API boundary is the only place spec.md §7 allows Kind -> status
// translation to happen. Unclassified errors are logged at Error level
// before the client sees a generic message, the same way the original
// logged "Unexpected service error" before returning a 500.
func abortError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := statusForKind(kind)
	if kind == apperrors.KindInternal {
		slog.Error("unhandled API error", "error", err)
		c.JSON(status, errorResponse{Error: "internal server error"})
		c.Abort()
		return
	}
	c.JSON(status, errorResponse{Error: err.Error()})
	c.Abort()
}
